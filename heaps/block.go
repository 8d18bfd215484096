package heaps

import "github.com/forgegpu/vkheaps/heaps/vk"

// blockVariant tags which sub-allocator produced a Block. Routing is an
// explicit switch on this tag rather than dynamic dispatch through an
// interface: each variant's free path needs sub-allocator-specific
// metadata (chunk index, slot) that is cheaper embedded than looked up.
type blockVariant int

const (
	variantDedicated blockVariant = iota
	variantArena
	variantDynamic
)

// Block is the externally visible allocation unit: a tagged variant over
// {Dedicated, Arena, Dynamic}. Arena and Dynamic blocks carry a back-index
// to their owning chunk (and, for Dynamic, their slot) so free is O(1); the
// chunk itself stores no back-pointer to its blocks.
type Block struct {
	variant   blockVariant
	raw       *rawMemory
	offset    uint64 // offset within raw
	size      uint64
	typeIndex uint32

	// valid when variant == variantArena or variantDynamic
	chunkIndex int
	// valid when variant == variantDynamic
	classIndex int
	slot       uint32
}

// Properties returns the effective property flags of the backing memory type.
func (b *Block) Properties() vk.MemoryPropertyFlags { return b.raw.properties }

// MemoryTypeIndex returns the memory-type index this block was allocated from.
func (b *Block) MemoryTypeIndex() uint32 { return b.typeIndex }

// Range returns the block's byte range within its raw memory handle.
func (b *Block) Range() (start, end uint64) { return b.offset, b.offset + b.size }

// Map opens a host mapping window over [offset, offset+size) of this block's
// range. It fails with ErrOutsideBlock if the sub-range escapes the block,
// or ErrHostInvisible if the memory type lacks host-visible.
func (b *Block) Map(device vk.Device, offset, size uint64) (*MappingWindow, error) {
	return newMappingWindow(device, b.raw, b.offset, b.size, offset, size)
}
