package heaps

import "github.com/forgegpu/vkheaps/heaps/vk"

// arenaChunk is a contiguous raw allocation subdivided by a monotonic
// cursor. It carries no back-pointer to the blocks it issued; a Block
// reaches it by index (§9 "Chunk ownership").
type arenaChunk struct {
	raw        *rawMemory
	size       uint64
	cursor     uint64
	usedBlocks int
	released   bool
}

// arenaAllocator is a deque of chunks with bump allocation inside each and
// FIFO release from the head once a chunk drains and is no longer the tail.
type arenaAllocator struct {
	typeIndex  uint32
	properties vk.MemoryPropertyFlags
	dedicated  *dedicatedAllocator
	config     ArenaConfig

	chunks []*arenaChunk // append-only; index is the Block's chunkIndex
	live   int           // outstanding block count, for the disposal guard
}

func newArenaAllocator(typeIndex uint32, properties vk.MemoryPropertyFlags, dedicated *dedicatedAllocator, cfg ArenaConfig) *arenaAllocator {
	return &arenaAllocator{typeIndex: typeIndex, properties: properties, dedicated: dedicated, config: cfg}
}

func (a *arenaAllocator) maxAllocation() uint64 { return a.config.MaxAllocation }

func (a *arenaAllocator) effectiveAlign(device vk.Device, align uint64) uint64 {
	if !a.properties.Has(vk.MemoryPropertyHostVisibleBit) {
		return align
	}
	atom := device.Limits().NonCoherentAtomSize
	if atom > align {
		return atom
	}
	return align
}

// alloc places size bytes at an align-aligned offset in the tail chunk,
// creating a new tail chunk (via the dedicated allocator) when the current
// one has no room. allocated is non-zero only when a new chunk was created,
// and then equals the full chunk size.
func (a *arenaAllocator) alloc(device vk.Device, size, align uint64) (*Block, uint64, error) {
	align = a.effectiveAlign(device, align)

	if n := len(a.chunks); n > 0 {
		tail := a.chunks[n-1]
		aligned := alignUp(tail.cursor, align)
		if aligned+size <= tail.size {
			tail.cursor = aligned + size
			tail.usedBlocks++
			a.live++
			return &Block{
				variant:    variantArena,
				raw:        tail.raw,
				offset:     aligned,
				size:       size,
				typeIndex:  a.typeIndex,
				chunkIndex: n - 1,
			}, 0, nil
		}
	}

	raw, _, err := a.dedicated.allocRaw(device, a.config.ChunkSize, 1)
	if err != nil {
		return nil, 0, err
	}
	chunk := &arenaChunk{raw: raw, size: a.config.ChunkSize}
	aligned := alignUp(0, align)
	chunk.cursor = aligned + size
	chunk.usedBlocks = 1
	a.chunks = append(a.chunks, chunk)
	a.live++
	Logger().Debug("heaps: new arena chunk", "typeIndex", a.typeIndex, "chunkSize", a.config.ChunkSize)
	return &Block{
		variant:    variantArena,
		raw:        chunk.raw,
		offset:     aligned,
		size:       size,
		typeIndex:  a.typeIndex,
		chunkIndex: len(a.chunks) - 1,
	}, a.config.ChunkSize, nil
}

// free decrements the owning chunk's live-block count. When the chunk
// drains to zero and is not the current tail, its raw memory is released
// immediately, giving FIFO semantics: a batch of blocks allocated together
// is released together once a newer chunk has taken over as tail.
func (a *arenaAllocator) free(device vk.Device, b *Block) uint64 {
	chunk := a.chunks[b.chunkIndex]
	chunk.usedBlocks--
	a.live--
	if chunk.usedBlocks != 0 || chunk.released {
		return 0
	}
	if b.chunkIndex == len(a.chunks)-1 {
		// Tail chunk: stays resident even when fully drained; the cursor
		// never retreats, so the next alloc on this memory type continues
		// bumping from where it left off or spills into a new chunk.
		return 0
	}
	a.dedicated.freeRaw(device, chunk.raw)
	chunk.released = true
	Logger().Debug("heaps: released drained arena chunk", "typeIndex", a.typeIndex)
	return chunk.size
}

func (a *arenaAllocator) dispose(device vk.Device) {
	if a.live != 0 {
		panic("heaps: arena allocator disposed with live blocks")
	}
	for _, c := range a.chunks {
		if !c.released {
			a.dedicated.freeRaw(device, c.raw)
			c.released = true
		}
	}
}
