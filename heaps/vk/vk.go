// Package vk defines the device capability contract and the property/flag
// vocabulary that the heaps allocator is written against. It carries no
// allocator logic of its own so that software and hardware backends can
// depend on the vocabulary without pulling in the allocator.
package vk

import "unsafe"

// MemoryPropertyFlags mirrors VkMemoryPropertyFlags: where a memory type
// lives and how the host may touch it.
type MemoryPropertyFlags uint32

const (
	MemoryPropertyDeviceLocalBit     MemoryPropertyFlags = 1 << 0
	MemoryPropertyHostVisibleBit     MemoryPropertyFlags = 1 << 1
	MemoryPropertyHostCoherentBit    MemoryPropertyFlags = 1 << 2
	MemoryPropertyHostCachedBit      MemoryPropertyFlags = 1 << 3
	MemoryPropertyLazilyAllocatedBit MemoryPropertyFlags = 1 << 4
)

// Has reports whether every bit in want is set.
func (f MemoryPropertyFlags) Has(want MemoryPropertyFlags) bool {
	return f&want == want
}

// HasAny reports whether any bit in want is set.
func (f MemoryPropertyFlags) HasAny(want MemoryPropertyFlags) bool {
	return f&want != 0
}

// MemoryHeapFlags mirrors VkMemoryHeapFlags.
type MemoryHeapFlags uint32

const (
	MemoryHeapDeviceLocalBit MemoryHeapFlags = 1 << 0
)

// DeviceMemory is an opaque handle to one driver memory allocation.
type DeviceMemory uint64

// NullMemory is the zero handle; no valid allocation ever returns it.
const NullMemory DeviceMemory = 0

// MappedRange names a byte range of one DeviceMemory for flush/invalidate.
type MappedRange struct {
	Memory DeviceMemory
	Offset uint64
	Size   uint64
}

// MemoryTypeInfo is one row of the device's memory-type table.
type MemoryTypeInfo struct {
	Properties MemoryPropertyFlags
	HeapIndex  uint32
}

// MemoryHeapInfo is one row of the device's memory-heap table.
type MemoryHeapInfo struct {
	Size  uint64
	Flags MemoryHeapFlags
}

// DeviceLimits exposes the read-only physical-device facts the allocator
// needs: the memory-type/heap tables and the non-coherent flush/invalidate
// granularity.
type DeviceLimits struct {
	MemoryTypes         []MemoryTypeInfo
	MemoryHeaps         []MemoryHeapInfo
	NonCoherentAtomSize uint64
}

// Device is the capability surface the allocator consumes: raw allocate,
// free, map, unmap, and flush/invalidate of driver memory. Implementations
// must not retain the slices passed to FlushMappedRanges/InvalidateMappedRanges
// beyond the call.
type Device interface {
	AllocateMemory(size uint64, typeIndex uint32) (DeviceMemory, error)
	FreeMemory(mem DeviceMemory)
	MapMemory(mem DeviceMemory, offset, size uint64) (unsafe.Pointer, error)
	UnmapMemory(mem DeviceMemory)
	FlushMappedRanges(ranges []MappedRange) error
	InvalidateMappedRanges(ranges []MappedRange) error
	Limits() DeviceLimits
}
