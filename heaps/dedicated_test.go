package heaps

import (
	"testing"

	"github.com/forgegpu/vkheaps/simdevice"
)

func TestDedicatedAllocFreeChargesFullSize(t *testing.T) {
	dev := simdevice.NewTwoHeapDevice()
	d := &dedicatedAllocator{typeIndex: 0, properties: deviceLocalOnly()}

	block, allocated, err := d.alloc(dev, 1<<20, 256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if allocated != 1<<20 {
		t.Fatalf("a dedicated allocation must charge its full size, got %d", allocated)
	}
	if block.variant != variantDedicated {
		t.Fatalf("expected variantDedicated, got %d", block.variant)
	}

	freed := d.free(dev, block)
	if freed != 1<<20 {
		t.Fatalf("freeing a dedicated block must return its full size, got %d", freed)
	}
	d.dispose()
}

func TestDedicatedAllocRoundsUpToAlign(t *testing.T) {
	dev := simdevice.NewTwoHeapDevice()
	d := &dedicatedAllocator{typeIndex: 0, properties: deviceLocalOnly()}

	block, allocated, err := d.alloc(dev, 100, 256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if allocated != 256 {
		t.Fatalf("a 100-byte request aligned to 256 must charge 256 bytes, got %d", allocated)
	}
	if block.size != 100 {
		t.Fatalf("the block's logical size must stay the unaligned request size, got %d", block.size)
	}

	d.free(dev, block)
	d.dispose()
}

func TestDedicatedDisposePanicsOnLiveBlocks(t *testing.T) {
	dev := simdevice.NewTwoHeapDevice()
	d := &dedicatedAllocator{typeIndex: 0, properties: deviceLocalOnly()}

	if _, _, err := d.alloc(dev, 4096, 256); err != nil {
		t.Fatalf("alloc: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected dispose to panic while a block is still live")
		}
	}()
	d.dispose()
}

func TestDedicatedMapUnmapSharesRefcount(t *testing.T) {
	dev := simdevice.NewTwoHeapDevice()
	d := &dedicatedAllocator{typeIndex: 1, properties: hostVisibleCoherent()}

	block, _, err := d.alloc(dev, 4096, 256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	w1, err := block.Map(dev, 0, 1024)
	if err != nil {
		t.Fatalf("map 1: %v", err)
	}
	w2, err := block.Map(dev, 1024, 1024)
	if err != nil {
		t.Fatalf("map 2: %v", err)
	}
	if block.raw.mapRefs != 2 {
		t.Fatalf("expected two outstanding mapping windows, got %d", block.raw.mapRefs)
	}

	w1.Unmap()
	if block.raw.mapRefs != 1 {
		t.Fatalf("unmapping one window must leave the driver mapping open, got refs=%d", block.raw.mapRefs)
	}
	w2.Unmap()
	if block.raw.mapRefs != 0 {
		t.Fatalf("unmapping the last window must release the driver mapping, got refs=%d", block.raw.mapRefs)
	}

	d.free(dev, block)
	d.dispose()
}

func TestDedicatedRejectsMapOnHostInvisibleType(t *testing.T) {
	dev := simdevice.NewTwoHeapDevice()
	d := &dedicatedAllocator{typeIndex: 0, properties: deviceLocalOnly()}

	block, _, err := d.alloc(dev, 4096, 256)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if _, err := block.Map(dev, 0, 4096); err != ErrHostInvisible {
		t.Fatalf("expected ErrHostInvisible, got %v", err)
	}

	d.free(dev, block)
	d.dispose()
}
