package heaps

import (
	"testing"

	"github.com/forgegpu/vkheaps/heaps/vk"
	"github.com/forgegpu/vkheaps/simdevice"
)

func newTestDynamic(blocksPerChunk uint32, minBlock, maxBlock uint64) (*dynamicAllocator, vk.Device) {
	dev := simdevice.NewTwoHeapDevice()
	props := vk.MemoryPropertyDeviceLocalBit
	ded := &dedicatedAllocator{typeIndex: 0, properties: props}
	dyn := newDynamicAllocator(0, props, ded, DynamicConfig{BlocksPerChunk: blocksPerChunk, MinBlock: minBlock, MaxBlock: maxBlock})
	return dyn, dev
}

func TestDynamicClassAndChunkReuse(t *testing.T) {
	dyn, dev := newTestDynamic(32, 4096, 1<<20)

	b1, allocated1, err := dyn.alloc(dev, 4096, 256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if allocated1 != 4096*32 {
		t.Fatalf("first slot of a new chunk must charge the full chunk size, got %d", allocated1)
	}
	b2, allocated2, err := dyn.alloc(dev, 4096, 256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if allocated2 != 0 {
		t.Fatalf("reusing a free slot must not charge again, got %d", allocated2)
	}
	if b1.chunkIndex != b2.chunkIndex || b1.classIndex != b2.classIndex {
		t.Fatalf("both blocks should land in the same class/chunk")
	}
	if b1.slot == b2.slot {
		t.Fatalf("distinct allocations must claim distinct slots")
	}
}

func TestDynamicNeverCoalescesAcrossClasses(t *testing.T) {
	dyn, dev := newTestDynamic(32, 4096, 1<<20)

	small, _, err := dyn.alloc(dev, 4096, 16)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	big, _, err := dyn.alloc(dev, 16384, 16)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if small.classIndex == big.classIndex {
		t.Fatalf("a 4x larger request must land in a different size class")
	}
}

func TestDynamicChunkFreedWhenEmpty(t *testing.T) {
	dyn, dev := newTestDynamic(4, 1024, 1<<20)

	blocks := make([]*Block, 4)
	for i := range blocks {
		b, _, err := dyn.alloc(dev, 1024, 16)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		blocks[i] = b
	}
	// All four slots of a 4-block chunk are now occupied; a fifth request
	// must create a new chunk.
	overflow, allocated, err := dyn.alloc(dev, 1024, 16)
	if err != nil {
		t.Fatalf("alloc overflow: %v", err)
	}
	if allocated != 4096 {
		t.Fatalf("overflow must create a new chunk, got charge %d", allocated)
	}
	if overflow.chunkIndex == blocks[0].chunkIndex {
		t.Fatalf("overflow should land in a new chunk")
	}

	for i, b := range blocks[:3] {
		if freed := dyn.free(dev, b); freed != 0 {
			t.Fatalf("partial free %d should not release the chunk, got %d", i, freed)
		}
	}
	freed := dyn.free(dev, blocks[3])
	if freed != 4096 {
		t.Fatalf("draining every slot in a chunk must release it, got %d", freed)
	}

	dyn.free(dev, overflow)
}
