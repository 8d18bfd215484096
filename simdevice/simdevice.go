// Package simdevice is an in-process heaps/vk.Device used by tests and the
// demo command. Host-visible memory types are backed by
// real OS-allocated, page-aligned memory so mapping/flush/invalidate
// round-trips exercise genuine memory instead of a plain byte slice;
// device-local-only types use an ordinary heap-allocated buffer since a
// well-behaved caller never attempts to map them.
package simdevice

import (
	"fmt"
	"unsafe"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

// HeapSpec describes one driver heap to simulate.
type HeapSpec struct {
	Size  uint64
	Flags vk.MemoryHeapFlags
}

// TypeSpec describes one driver memory type to simulate.
type TypeSpec struct {
	Properties vk.MemoryPropertyFlags
	HeapIndex  uint32
}

type allocation struct {
	typeIndex uint32
	size      uint64
	pages     []byte // OS-backed when host-visible, nil otherwise
	plain     []byte // plain heap buffer when not host-visible
	mapCount  int
}

// Device is a fake vk.Device that never talks to real hardware.
type Device struct {
	heaps   []vk.MemoryHeapInfo
	types   []vk.MemoryTypeInfo
	atom    uint64
	allocs  map[vk.DeviceMemory]*allocation
	nextID  uint64
	flushed []vk.MappedRange
	invalid []vk.MappedRange
}

// New builds a fake device advertising the given heaps and memory types,
// with the given non-coherent atom size.
func New(heaps []HeapSpec, types []TypeSpec, nonCoherentAtomSize uint64) *Device {
	d := &Device{
		heaps:  make([]vk.MemoryHeapInfo, len(heaps)),
		types:  make([]vk.MemoryTypeInfo, len(types)),
		atom:   nonCoherentAtomSize,
		allocs: make(map[vk.DeviceMemory]*allocation),
		nextID: 1,
	}
	for i, h := range heaps {
		d.heaps[i] = vk.MemoryHeapInfo{Size: h.Size, Flags: h.Flags}
	}
	for i, t := range types {
		d.types[i] = vk.MemoryTypeInfo{Properties: t.Properties, HeapIndex: t.HeapIndex}
	}
	return d
}

// NewTwoHeapDevice builds the fixture used throughout the scenario tests:
// a 64 MiB device-local-only heap #0 and a 32 MiB host-visible+coherent
// heap #1.
func NewTwoHeapDevice() *Device {
	return New(
		[]HeapSpec{
			{Size: 64 << 20, Flags: vk.MemoryHeapDeviceLocalBit},
			{Size: 32 << 20},
		},
		[]TypeSpec{
			{Properties: vk.MemoryPropertyDeviceLocalBit, HeapIndex: 0},
			{Properties: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit, HeapIndex: 1},
		},
		256,
	)
}

// NewNonCoherentDevice builds a single-heap device whose only memory type
// is host-visible but not host-coherent, for exercising flush/invalidate.
func NewNonCoherentDevice(heapSize uint64, atomSize uint64) *Device {
	return New(
		[]HeapSpec{{Size: heapSize}},
		[]TypeSpec{{Properties: vk.MemoryPropertyHostVisibleBit, HeapIndex: 0}},
		atomSize,
	)
}

func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (vk.DeviceMemory, error) {
	if int(typeIndex) >= len(d.types) {
		return vk.NullMemory, fmt.Errorf("simdevice: invalid memory type index %d", typeIndex)
	}
	a := &allocation{typeIndex: typeIndex, size: size}
	if d.types[typeIndex].Properties.Has(vk.MemoryPropertyHostVisibleBit) {
		pages, err := allocPages(int(size))
		if err != nil {
			return vk.NullMemory, fmt.Errorf("simdevice: %w", err)
		}
		a.pages = pages
	} else {
		a.plain = make([]byte, size)
	}
	id := vk.DeviceMemory(d.nextID)
	d.nextID++
	d.allocs[id] = a
	return id, nil
}

func (d *Device) FreeMemory(mem vk.DeviceMemory) {
	a, ok := d.allocs[mem]
	if !ok {
		return
	}
	if a.pages != nil {
		freePages(a.pages)
	}
	delete(d.allocs, mem)
}

func (d *Device) MapMemory(mem vk.DeviceMemory, offset, size uint64) (unsafe.Pointer, error) {
	a, ok := d.allocs[mem]
	if !ok {
		return nil, fmt.Errorf("simdevice: map of unknown handle")
	}
	buf := a.pages
	if buf == nil {
		buf = a.plain
	}
	if offset+size > uint64(len(buf)) {
		return nil, fmt.Errorf("simdevice: map range out of bounds")
	}
	a.mapCount++
	return unsafe.Pointer(&buf[offset]), nil
}

func (d *Device) UnmapMemory(mem vk.DeviceMemory) {
	if a, ok := d.allocs[mem]; ok && a.mapCount > 0 {
		a.mapCount--
	}
}

func (d *Device) FlushMappedRanges(ranges []vk.MappedRange) error {
	d.flushed = append(d.flushed, ranges...)
	return nil
}

func (d *Device) InvalidateMappedRanges(ranges []vk.MappedRange) error {
	d.invalid = append(d.invalid, ranges...)
	return nil
}

func (d *Device) Limits() vk.DeviceLimits {
	return vk.DeviceLimits{
		MemoryTypes:         d.types,
		MemoryHeaps:         d.heaps,
		NonCoherentAtomSize: d.atom,
	}
}

// FlushedRanges returns every range passed to FlushMappedRanges so far, for
// test assertions.
func (d *Device) FlushedRanges() []vk.MappedRange { return d.flushed }

// InvalidatedRanges returns every range passed to InvalidateMappedRanges so
// far, for test assertions.
func (d *Device) InvalidatedRanges() []vk.MappedRange { return d.invalid }

// LiveAllocations returns the number of outstanding raw allocations, for
// test assertions that a dedicated/chunk allocation was or wasn't reused.
func (d *Device) LiveAllocations() int { return len(d.allocs) }
