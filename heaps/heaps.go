package heaps

import (
	"fmt"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

// MemoryTypeSpec describes one row of the device's memory-type table plus
// the sub-allocator configuration to apply to it.
type MemoryTypeSpec struct {
	Properties vk.MemoryPropertyFlags
	HeapIndex  uint32
	Config     HeapsConfig
}

// Heaps is the top-level entry point: memory-type selection from a
// compatibility mask and usage, heap-budget admission, free dispatch, and
// teardown. It carries no internal lock — see §5: the caller must serialize
// every mutating call.
type Heaps struct {
	types []*MemoryType
	heaps []*MemoryHeap
}

// NewHeaps builds the type table from explicit memory-type and heap-size
// data. It panics if a memory type's HeapIndex is out of range or if there
// are more memory types than fit a uint32 selection mask.
func NewHeaps(typeSpecs []MemoryTypeSpec, heapSizes []uint64) *Heaps {
	if len(typeSpecs) == 0 {
		panic("heaps: no memory types")
	}
	if len(typeSpecs) > 32 {
		panic("heaps: too many memory types to address with a uint32 mask")
	}
	heaps := make([]*MemoryHeap, len(heapSizes))
	for i, size := range heapSizes {
		heaps[i] = &MemoryHeap{size: size}
	}
	types := make([]*MemoryType, len(typeSpecs))
	for i, spec := range typeSpecs {
		if spec.HeapIndex >= uint32(len(heaps)) {
			panic(fmt.Sprintf("heaps: memory type %d has out-of-range heap_index %d", i, spec.HeapIndex))
		}
		if spec.Config.Arena != nil {
			spec.Config.Arena.validate()
		}
		if spec.Config.Dynamic != nil {
			spec.Config.Dynamic.validate()
		}
		types[i] = newMemoryType(uint32(i), spec.HeapIndex, spec.Properties, spec.Config)
	}
	return &Heaps{types: types, heaps: heaps}
}

// NewHeapsFromDevice builds the type table by querying the device's
// advertised memory-type/heap tables, applying configs[i] to memory type i.
func NewHeapsFromDevice(device vk.Device, configs []HeapsConfig) *Heaps {
	limits := device.Limits()
	if len(configs) != len(limits.MemoryTypes) {
		panic(fmt.Sprintf("heaps: got %d configs for %d device memory types", len(configs), len(limits.MemoryTypes)))
	}
	specs := make([]MemoryTypeSpec, len(limits.MemoryTypes))
	for i, mt := range limits.MemoryTypes {
		specs[i] = MemoryTypeSpec{Properties: mt.Properties, HeapIndex: mt.HeapIndex, Config: configs[i]}
	}
	heapSizes := make([]uint64, len(limits.MemoryHeaps))
	for i, h := range limits.MemoryHeaps {
		heapSizes[i] = h.Size
	}
	return NewHeaps(specs, heapSizes)
}

// NumHeaps returns the number of driver heaps tracked.
func (h *Heaps) NumHeaps() int { return len(h.heaps) }

// Heap returns read-only accounting for heap i.
func (h *Heaps) Heap(i int) *MemoryHeap { return h.heaps[i] }

// Allocate selects a memory type compatible with mask whose fitness for
// usage is non-None and whose heap has room, then delegates to it.
//
// Selection (§4.1):
//  1. Enumerate memory types whose bit is set in mask.
//  2. Drop those for which usage.fitness(properties) is None.
//  3. Drop those whose heap.available <= size+align.
//  4. Pick the candidate with the highest fitness; ties keep the lowest
//     type index, by only replacing the current best on strictly-greater
//     fitness while scanning in ascending index order.
//  5. Delegate to MemoryType.alloc and charge the heap with the actual
//     bytes consumed.
func (h *Heaps) Allocate(device vk.Device, mask uint32, usage MemoryUsage, size, align uint64) (*Block, error) {
	if mask == 0 {
		panic("heaps: mask must be nonzero")
	}
	if size == 0 {
		panic("heaps: size must be > 0")
	}
	if align == 0 || !isPowerOfTwoU64(align) {
		panic("heaps: align must be a power of two")
	}

	bestIdx := -1
	bestScore := -1
	fitCandidates := 0

	for i, mt := range h.types {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		score, ok := usage.fitness(mt.properties)
		if !ok {
			continue
		}
		fitCandidates++

		heap := h.heaps[mt.heapIndex]
		if heap.available() <= size+align {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if fitCandidates == 0 {
		Logger().Warn("heaps: no suitable memory type", "mask", mask, "usage", usage.String())
		return nil, fmt.Errorf("%w: mask=%#x usage=%s", ErrNoSuitableMemory, mask, usage)
	}
	if bestIdx < 0 {
		Logger().Warn("heaps: budget exhausted for all candidates", "mask", mask, "usage", usage.String(), "size", size)
		return nil, ErrHeapsExhausted
	}
	return h.AllocateFrom(device, uint32(bestIdx), usage, size, align)
}

// AllocateFrom skips selection and allocates directly from memory type
// index. Allocate calls it once selection has picked a type, and it is
// exposed for tests that need to pin a memory type. Sub-allocator chunks
// do not go through it; they come from the memory type's dedicated
// allocator.
func (h *Heaps) AllocateFrom(device vk.Device, index uint32, usage MemoryUsage, size, align uint64) (*Block, error) {
	mt := h.types[index]
	heap := h.heaps[mt.heapIndex]
	if heap.available() < size {
		Logger().Warn("heaps: budget exhausted for memory type", "index", index, "usage", usage.String(), "size", size)
		return nil, ErrHeapsExhausted
	}
	block, allocated, err := mt.alloc(device, usage, size, align)
	if err != nil {
		return nil, err
	}
	heap.used += allocated
	return block, nil
}

// Free routes by the block's memory-type index to the owning MemoryType and
// subtracts the released byte count from its heap. It panics if the block's
// memory-type index is out of range for this Heaps; a block from another
// Heaps whose index happens to be in range is not detected.
func (h *Heaps) Free(device vk.Device, b *Block) {
	if int(b.typeIndex) >= len(h.types) {
		panic("heaps: block did not originate from this Heaps")
	}
	mt := h.types[b.typeIndex]
	freed := mt.free(device, b)
	h.heaps[mt.heapIndex].used -= freed
}

// Dispose tears down every memory type in index order. It panics if any
// sub-allocator still holds live blocks.
func (h *Heaps) Dispose(device vk.Device) {
	for _, mt := range h.types {
		mt.dispose(device)
	}
}
