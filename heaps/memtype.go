package heaps

import "github.com/forgegpu/vkheaps/heaps/vk"

// MemoryType holds one instance of each applicable sub-allocator for one
// driver memory type and routes requests by usage and size (§4.2). A
// sub-allocator is present only when the caller supplied a config for it
// and the memory type's properties satisfy its preconditions.
type MemoryType struct {
	index      uint32
	heapIndex  uint32
	properties vk.MemoryPropertyFlags

	dedicated *dedicatedAllocator
	arena     *arenaAllocator   // nil unless configured and host-visible
	dynamic   *dynamicAllocator // nil unless configured
}

func newMemoryType(index, heapIndex uint32, properties vk.MemoryPropertyFlags, cfg HeapsConfig) *MemoryType {
	dedicated := &dedicatedAllocator{typeIndex: index, properties: properties}
	mt := &MemoryType{index: index, heapIndex: heapIndex, properties: properties, dedicated: dedicated}
	if cfg.Arena != nil && properties.Has(vk.MemoryPropertyHostVisibleBit) {
		mt.arena = newArenaAllocator(index, properties, dedicated, *cfg.Arena)
	}
	if cfg.Dynamic != nil {
		mt.dynamic = newDynamicAllocator(index, properties, dedicated, *cfg.Dynamic)
	}
	return mt
}

// alloc routes by usage and size per the §4.2 table: Upload/Download prefer
// Arena when present and the request fits its cap; Dynamic/Data prefer
// Dynamic under the same condition; everything else, and anything that
// overflows a sub-allocator's cap, falls through to Dedicated.
func (mt *MemoryType) alloc(device vk.Device, usage MemoryUsage, size, align uint64) (*Block, uint64, error) {
	switch usage {
	case UsageUpload, UsageDownload:
		if mt.arena != nil && size <= mt.arena.maxAllocation() {
			return mt.arena.alloc(device, size, align)
		}
	case UsageDynamic, UsageData:
		if mt.dynamic != nil && size <= mt.dynamic.maxAllocation() && align <= mt.dynamic.maxAllocation() {
			return mt.dynamic.alloc(device, size, align)
		}
	}
	return mt.dedicated.alloc(device, size, align)
}

// free dispatches by the block's variant. Freeing an arena/dynamic block
// when that sub-allocator is absent is a programmer error.
func (mt *MemoryType) free(device vk.Device, b *Block) uint64 {
	switch b.variant {
	case variantDedicated:
		return mt.dedicated.free(device, b)
	case variantArena:
		if mt.arena == nil {
			panic("heaps: freeing an arena block but this memory type has no arena allocator")
		}
		return mt.arena.free(device, b)
	case variantDynamic:
		if mt.dynamic == nil {
			panic("heaps: freeing a dynamic block but this memory type has no dynamic allocator")
		}
		return mt.dynamic.free(device, b)
	default:
		panic("heaps: block has unknown variant")
	}
}

func (mt *MemoryType) dispose(device vk.Device) {
	mt.dedicated.dispose()
	if mt.arena != nil {
		mt.arena.dispose(device)
	}
	if mt.dynamic != nil {
		mt.dynamic.dispose(device)
	}
}
