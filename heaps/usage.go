package heaps

import "github.com/forgegpu/vkheaps/heaps/vk"

// MemoryUsage is the closed set of allocation intents. It drives both
// memory-type fitness scoring and sub-allocator routing (§4.2).
type MemoryUsage int

const (
	// UsageData is a device-resident resource with no host access pattern.
	UsageData MemoryUsage = iota
	// UsageDynamic is a device-resident resource updated frequently from the host.
	UsageDynamic
	// UsageUpload is host-to-device staging (write-mostly).
	UsageUpload
	// UsageDownload is device-to-host staging (read-mostly).
	UsageDownload
)

func (u MemoryUsage) String() string {
	switch u {
	case UsageData:
		return "Data"
	case UsageDynamic:
		return "Dynamic"
	case UsageUpload:
		return "Upload"
	case UsageDownload:
		return "Download"
	default:
		return "Usage(?)"
	}
}

type fitnessRule struct {
	required vk.MemoryPropertyFlags
	forbid   vk.MemoryPropertyFlags
	// pref is the preference order, highest first. Each present bit adds a
	// weight that strictly dominates every bit after it in the list, giving
	// the total order the fitness table describes.
	pref []vk.MemoryPropertyFlags
}

var fitnessRules = map[MemoryUsage]fitnessRule{
	UsageData: {
		required: vk.MemoryPropertyDeviceLocalBit,
		pref: []vk.MemoryPropertyFlags{
			vk.MemoryPropertyDeviceLocalBit,
			vk.MemoryPropertyHostCachedBit,
			vk.MemoryPropertyHostCoherentBit,
		},
	},
	UsageDynamic: {
		required: vk.MemoryPropertyHostVisibleBit,
		forbid:   vk.MemoryPropertyLazilyAllocatedBit,
		pref: []vk.MemoryPropertyFlags{
			vk.MemoryPropertyDeviceLocalBit,
			vk.MemoryPropertyHostCoherentBit,
			vk.MemoryPropertyHostCachedBit,
		},
	},
	UsageUpload: {
		required: vk.MemoryPropertyHostVisibleBit,
		forbid:   vk.MemoryPropertyLazilyAllocatedBit | vk.MemoryPropertyHostCachedBit,
		pref: []vk.MemoryPropertyFlags{
			vk.MemoryPropertyHostCoherentBit,
			vk.MemoryPropertyDeviceLocalBit,
		},
	},
	UsageDownload: {
		required: vk.MemoryPropertyHostVisibleBit,
		forbid:   vk.MemoryPropertyLazilyAllocatedBit,
		pref: []vk.MemoryPropertyFlags{
			vk.MemoryPropertyHostCachedBit,
			vk.MemoryPropertyHostCoherentBit,
			vk.MemoryPropertyDeviceLocalBit,
		},
	},
}

// fitness scores properties for this usage. ok is false when properties is
// incompatible (missing a required bit or carrying a forbidden one); the
// spec calls this "None". A higher score is strictly preferred.
func (u MemoryUsage) fitness(properties vk.MemoryPropertyFlags) (score int, ok bool) {
	rule, known := fitnessRules[u]
	if !known {
		return 0, false
	}
	if !properties.Has(rule.required) {
		return 0, false
	}
	if rule.forbid != 0 && properties.HasAny(rule.forbid) {
		return 0, false
	}
	for i, bit := range rule.pref {
		if properties.HasAny(bit) {
			score += 1 << (len(rule.pref) - i)
		}
	}
	return score, true
}
