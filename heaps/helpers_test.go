package heaps

import "github.com/forgegpu/vkheaps/heaps/vk"

// Shared property-flag fixtures for the scenario and unit tests below.

func deviceLocalOnly() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyDeviceLocalBit
}

func hostVisibleOnly() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyHostVisibleBit
}

func hostVisibleCoherent() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
}
