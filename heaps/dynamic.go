package heaps

import (
	"math/bits"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

// dynamicChunk backs one size class with a raw allocation split into
// config.BlocksPerChunk equal slots, tracked by a bitmap (1 = occupied). It
// fits in one machine word because BlocksPerChunk is capped at 64.
type dynamicChunk struct {
	raw      *rawMemory
	occupied uint64
	released bool
}

type sizeClass struct {
	blockSize uint64
	chunks    []*dynamicChunk // append-only; index is the Block's chunkIndex
}

// dynamicAllocator is a ladder of power-of-two size classes, each backed by
// its own set of bitmap-tracked chunks. It splits but never coalesces
// across size classes: the size-class table itself bounds external
// fragmentation.
type dynamicAllocator struct {
	typeIndex  uint32
	properties vk.MemoryPropertyFlags
	dedicated  *dedicatedAllocator
	config     DynamicConfig

	classes []*sizeClass // indexed by log2(blockSize / MinBlock)
	live    int
}

func newDynamicAllocator(typeIndex uint32, properties vk.MemoryPropertyFlags, dedicated *dedicatedAllocator, cfg DynamicConfig) *dynamicAllocator {
	numClasses := bits.Len64(cfg.MaxBlock/cfg.MinBlock) // MaxBlock/MinBlock is a power of two
	classes := make([]*sizeClass, numClasses)
	size := cfg.MinBlock
	for i := range classes {
		classes[i] = &sizeClass{blockSize: size}
		size <<= 1
	}
	return &dynamicAllocator{typeIndex: typeIndex, properties: properties, dedicated: dedicated, config: cfg, classes: classes}
}

func (d *dynamicAllocator) maxAllocation() uint64 { return d.config.MaxBlock }

func (d *dynamicAllocator) fullMask() uint64 {
	if d.config.BlocksPerChunk == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << d.config.BlocksPerChunk) - 1
}

func (d *dynamicAllocator) classIndexFor(required uint64) int {
	idx := 0
	for size := d.config.MinBlock; size < required; size <<= 1 {
		idx++
	}
	return idx
}

// alloc rounds size up to the containing power-of-two size class (at least
// align and MinBlock, capped by MaxBlock — callers must have already
// verified size fits under MaxBlock), claims the lowest free slot in an
// existing chunk of that class, or creates a new chunk via the dedicated
// allocator. allocated is the full chunk size when a new chunk was needed,
// else 0.
func (d *dynamicAllocator) alloc(device vk.Device, size, align uint64) (*Block, uint64, error) {
	required := size
	if align > required {
		required = align
	}
	if d.config.MinBlock > required {
		required = d.config.MinBlock
	}
	required = nextPowerOfTwo(required)

	ci := d.classIndexFor(required)
	class := d.classes[ci]

	for chunkIdx, chunk := range class.chunks {
		if chunk.released {
			continue
		}
		if chunk.occupied != d.fullMask() {
			slot := bits.TrailingZeros64(^chunk.occupied & d.fullMask())
			chunk.occupied |= 1 << uint(slot)
			d.live++
			return &Block{
				variant:    variantDynamic,
				raw:        chunk.raw,
				offset:     uint64(slot) * class.blockSize,
				size:       size,
				typeIndex:  d.typeIndex,
				chunkIndex: chunkIdx,
				classIndex: ci,
				slot:       uint32(slot),
			}, 0, nil
		}
	}

	chunkSize := class.blockSize * uint64(d.config.BlocksPerChunk)
	raw, _, err := d.dedicated.allocRaw(device, chunkSize, 1)
	if err != nil {
		return nil, 0, err
	}
	chunk := &dynamicChunk{raw: raw, occupied: 1}
	class.chunks = append(class.chunks, chunk)
	d.live++
	Logger().Debug("heaps: new dynamic chunk", "typeIndex", d.typeIndex, "class", class.blockSize, "chunkSize", chunkSize)
	return &Block{
		variant:    variantDynamic,
		raw:        chunk.raw,
		offset:     0,
		size:       size,
		typeIndex:  d.typeIndex,
		chunkIndex: len(class.chunks) - 1,
		classIndex: ci,
		slot:       0,
	}, chunkSize, nil
}

// free clears the block's slot. When its chunk becomes entirely free, its
// raw memory is returned to the device and freed equals the full chunk
// size; otherwise freed is 0. Chunks are never coalesced across size
// classes or reshuffled across slots.
func (d *dynamicAllocator) free(device vk.Device, b *Block) uint64 {
	class := d.classes[b.classIndex]
	chunk := class.chunks[b.chunkIndex]
	chunk.occupied &^= 1 << uint(b.slot)
	d.live--
	if chunk.occupied != 0 {
		return 0
	}
	chunkSize := class.blockSize * uint64(d.config.BlocksPerChunk)
	d.dedicated.freeRaw(device, chunk.raw)
	chunk.released = true
	Logger().Debug("heaps: released drained dynamic chunk", "typeIndex", d.typeIndex, "class", class.blockSize)
	return chunkSize
}

func (d *dynamicAllocator) dispose(device vk.Device) {
	if d.live != 0 {
		panic("heaps: dynamic allocator disposed with live blocks")
	}
	for _, class := range d.classes {
		for _, chunk := range class.chunks {
			if !chunk.released {
				d.dedicated.freeRaw(device, chunk.raw)
				chunk.released = true
			}
		}
	}
}
