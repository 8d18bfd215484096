package heaps

import (
	"unsafe"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

// rawMemory is the opaque wrapper around one driver allocation. At most one
// driver-level mapping is ever open against a given handle; overlapping
// MappingWindows share it through mapRefs (§4.6).
type rawMemory struct {
	handle     vk.DeviceMemory
	size       uint64
	properties vk.MemoryPropertyFlags
	typeIndex  uint32

	mapRefs uint32
	mapPtr  unsafe.Pointer
}

// ensureMapped returns the host pointer for this handle, mapping the whole
// handle on the first call and incrementing the refcount on every call.
func (r *rawMemory) ensureMapped(device vk.Device) (unsafe.Pointer, error) {
	if !r.properties.Has(vk.MemoryPropertyHostVisibleBit) {
		return nil, ErrHostInvisible
	}
	if r.mapRefs == 0 {
		ptr, err := device.MapMemory(r.handle, 0, r.size)
		if err != nil {
			return nil, err
		}
		r.mapPtr = ptr
	}
	r.mapRefs++
	return r.mapPtr, nil
}

// releaseMap decrements the refcount, unmapping the driver-level mapping
// once no window references it.
func (r *rawMemory) releaseMap(device vk.Device) {
	if r.mapRefs == 0 {
		return
	}
	r.mapRefs--
	if r.mapRefs == 0 {
		device.UnmapMemory(r.handle)
		r.mapPtr = nil
	}
}
