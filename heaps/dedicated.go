package heaps

import "github.com/forgegpu/vkheaps/heaps/vk"

// dedicatedAllocator hands out exactly one driver allocation per block. It
// never pools: free always returns the memory to the device immediately.
// It also backs chunk creation for the arena and dynamic sub-allocators of
// the same memory type (§9 "Sub-allocator recursion") through allocRaw,
// which bypasses the public Block wrapping and live-count bookkeeping that
// only applies to user-facing Dedicated blocks.
type dedicatedAllocator struct {
	typeIndex  uint32
	properties vk.MemoryPropertyFlags
	live       int // outstanding user-facing block count, for the disposal guard
}

// allocRaw performs one driver allocation rounded up to align, with no
// Block wrapping and no live-count bookkeeping. Used both by the public
// alloc below and by the arena/dynamic allocators to back a new chunk.
func (d *dedicatedAllocator) allocRaw(device vk.Device, size, align uint64) (*rawMemory, uint64, error) {
	allocSize := alignUp(size, align)
	mem, err := device.AllocateMemory(allocSize, d.typeIndex)
	if err != nil {
		return nil, 0, err
	}
	raw := &rawMemory{
		handle:     mem,
		size:       allocSize,
		properties: d.properties,
		typeIndex:  d.typeIndex,
	}
	return raw, allocSize, nil
}

// freeRaw releases a handle created by allocRaw, unmapping it first if mapped.
func (d *dedicatedAllocator) freeRaw(device vk.Device, raw *rawMemory) {
	if raw.mapRefs > 0 {
		device.UnmapMemory(raw.handle)
		raw.mapRefs = 0
		raw.mapPtr = nil
	}
	device.FreeMemory(raw.handle)
}

func (d *dedicatedAllocator) alloc(device vk.Device, size, align uint64) (*Block, uint64, error) {
	raw, allocSize, err := d.allocRaw(device, size, align)
	if err != nil {
		return nil, 0, err
	}
	d.live++
	block := &Block{
		variant:   variantDedicated,
		raw:       raw,
		offset:    0,
		size:      size,
		typeIndex: d.typeIndex,
	}
	Logger().Debug("heaps: dedicated allocation", "typeIndex", d.typeIndex, "size", allocSize)
	return block, allocSize, nil
}

func (d *dedicatedAllocator) free(device vk.Device, b *Block) uint64 {
	freed := b.raw.size
	d.freeRaw(device, b.raw)
	d.live--
	return freed
}

func (d *dedicatedAllocator) dispose() {
	if d.live != 0 {
		panic("heaps: dedicated allocator disposed with live blocks")
	}
}
