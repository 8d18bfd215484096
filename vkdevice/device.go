package vkdevice

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

// Sentinel errors surfaced to heaps callers; heaps itself only ever sees
// these through vk.Device's plain error return, never a vkdevice type.
var (
	ErrAllocationFailed = errors.New("vkdevice: memory allocation failed")
	ErrMappingFailed    = errors.New("vkdevice: memory mapping failed")
)

// Device implements heaps/vk.Device against the system Vulkan loader. It
// owns one VkInstance and one VkDevice created over the first enumerated
// physical device, for the sole purpose of servicing device-memory
// allocate/free/map/unmap/flush/invalidate calls.
type Device struct {
	instance       uint64
	physicalDevice uint64
	handle         uint64

	fnDestroyInstance              unsafe.Pointer
	fnDestroyDevice                unsafe.Pointer
	fnAllocateMemory               unsafe.Pointer
	fnFreeMemory                   unsafe.Pointer
	fnMapMemory                    unsafe.Pointer
	fnUnmapMemory                  unsafe.Pointer
	fnFlushMappedMemoryRanges      unsafe.Pointer
	fnInvalidateMappedMemoryRanges unsafe.Pointer

	limits vk.DeviceLimits
}

// Open loads the Vulkan library, creates an instance, selects the first
// physical device, creates a logical device with a single queue on family
// 0, and reads its memory-type/heap table and non-coherent atom size.
func Open(appName string) (*Device, error) {
	if err := initLoader(); err != nil {
		return nil, err
	}

	instance, err := createVkInstance(appName)
	if err != nil {
		return nil, err
	}
	destroyInstance, err := mustProcAddr(instance, "vkDestroyInstance")
	if err != nil {
		return nil, err
	}

	physicalDevice, err := firstPhysicalDevice(instance)
	if err != nil {
		callVoidHandlePtr(destroyInstance, instance)
		return nil, err
	}

	memProps, atomSize, err := queryPhysicalDevice(instance, physicalDevice)
	if err != nil {
		callVoidHandlePtr(destroyInstance, instance)
		return nil, err
	}

	handle, err := createLogicalDevice(instance, physicalDevice)
	if err != nil {
		callVoidHandlePtr(destroyInstance, instance)
		return nil, err
	}

	d := &Device{
		instance:        instance,
		physicalDevice:  physicalDevice,
		handle:          handle,
		limits:          memProps,
		fnDestroyInstance: destroyInstance,
	}
	d.limits.NonCoherentAtomSize = atomSize

	procNames := map[string]*unsafe.Pointer{
		"vkDestroyDevice":                &d.fnDestroyDevice,
		"vkAllocateMemory":               &d.fnAllocateMemory,
		"vkFreeMemory":                   &d.fnFreeMemory,
		"vkMapMemory":                    &d.fnMapMemory,
		"vkUnmapMemory":                  &d.fnUnmapMemory,
		"vkFlushMappedMemoryRanges":      &d.fnFlushMappedMemoryRanges,
		"vkInvalidateMappedMemoryRanges": &d.fnInvalidateMappedMemoryRanges,
	}
	for name, slot := range procNames {
		fn, err := mustProcAddr(instance, name)
		if err != nil {
			d.Close()
			return nil, err
		}
		*slot = fn
	}
	return d, nil
}

// Close destroys the logical device and instance. Callers must have
// disposed every heaps.Heaps built over this Device first.
func (d *Device) Close() {
	if d.handle != 0 && d.fnDestroyDevice != nil {
		callVoidHandlePtr(d.fnDestroyDevice, d.handle)
	}
	if d.instance != 0 && d.fnDestroyInstance != nil {
		callVoidHandlePtr(d.fnDestroyInstance, d.instance)
	}
}

func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (vk.DeviceMemory, error) {
	info := memoryAllocateInfo{
		sType:           structureTypeMemoryAllocateInfo,
		allocationSize:  size,
		memoryTypeIndex: typeIndex,
	}
	var mem uint64
	infoPtr := unsafe.Pointer(&info)
	var nullPtr unsafe.Pointer
	memPtr := unsafe.Pointer(&mem)
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&d.handle),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&nullPtr),
		unsafe.Pointer(&memPtr),
	}
	var result int32
	if err := ffi.CallFunction(&sigResultHandlePtrPtrPtr, d.fnAllocateMemory, unsafe.Pointer(&result), args[:]); err != nil {
		return vk.NullMemory, fmt.Errorf("%w: vkAllocateMemory call: %v", ErrAllocationFailed, err)
	}
	if result != 0 {
		return vk.NullMemory, fmt.Errorf("%w: vkAllocateMemory returned VkResult(%d)", ErrAllocationFailed, result)
	}
	return vk.DeviceMemory(mem), nil
}

func (d *Device) FreeMemory(mem vk.DeviceMemory) {
	handle := uint64(mem)
	var nullPtr unsafe.Pointer
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&d.handle),
		unsafe.Pointer(&handle),
		unsafe.Pointer(&nullPtr),
	}
	_ = ffi.CallFunction(&sigVoidHandleHandlePtr, d.fnFreeMemory, nil, args[:])
}

func (d *Device) MapMemory(mem vk.DeviceMemory, offset, size uint64) (unsafe.Pointer, error) {
	handle := uint64(mem)
	var flags uint32
	var data unsafe.Pointer
	dataPtr := unsafe.Pointer(&data)
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&d.handle),
		unsafe.Pointer(&handle),
		unsafe.Pointer(&offset),
		unsafe.Pointer(&size),
		unsafe.Pointer(&flags),
		unsafe.Pointer(&dataPtr),
	}
	var result int32
	if err := ffi.CallFunction(&sigResultMapMemory, d.fnMapMemory, unsafe.Pointer(&result), args[:]); err != nil {
		return nil, fmt.Errorf("%w: vkMapMemory call: %v", ErrMappingFailed, err)
	}
	if result != 0 {
		return nil, fmt.Errorf("%w: vkMapMemory returned VkResult(%d)", ErrMappingFailed, result)
	}
	return data, nil
}

func (d *Device) UnmapMemory(mem vk.DeviceMemory) {
	handle := uint64(mem)
	args := [2]unsafe.Pointer{
		unsafe.Pointer(&d.handle),
		unsafe.Pointer(&handle),
	}
	_ = ffi.CallFunction(&sigVoidHandleHandle, d.fnUnmapMemory, nil, args[:])
}

func (d *Device) FlushMappedRanges(ranges []vk.MappedRange) error {
	return d.callMappedRanges(d.fnFlushMappedMemoryRanges, ranges)
}

func (d *Device) InvalidateMappedRanges(ranges []vk.MappedRange) error {
	return d.callMappedRanges(d.fnInvalidateMappedMemoryRanges, ranges)
}

func (d *Device) callMappedRanges(fn unsafe.Pointer, ranges []vk.MappedRange) error {
	if len(ranges) == 0 {
		return nil
	}
	cRanges := make([]mappedMemoryRangeC, len(ranges))
	for i, r := range ranges {
		cRanges[i] = mappedMemoryRangeC{
			sType:  structureTypeMappedMemoryRange,
			memory: uint64(r.Memory),
			offset: r.Offset,
			size:   r.Size,
		}
	}
	count := uint32(len(cRanges))
	rangesPtr := unsafe.Pointer(&cRanges[0])
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&d.handle),
		unsafe.Pointer(&count),
		unsafe.Pointer(&rangesPtr),
	}
	var result int32
	if err := ffi.CallFunction(&sigResultHandleU32Ptr, fn, unsafe.Pointer(&result), args[:]); err != nil {
		return fmt.Errorf("%w: flush/invalidate call: %v", ErrMappingFailed, err)
	}
	if result != 0 {
		return fmt.Errorf("%w: VkResult(%d)", ErrMappingFailed, result)
	}
	return nil
}

// Limits returns the memory-type/heap table and non-coherent atom size
// read from the physical device at Open time.
func (d *Device) Limits() vk.DeviceLimits { return d.limits }

func callVoidHandlePtr(fn unsafe.Pointer, handle uint64) {
	var nullPtr unsafe.Pointer
	args := [2]unsafe.Pointer{
		unsafe.Pointer(&handle),
		unsafe.Pointer(&nullPtr),
	}
	_ = ffi.CallFunction(&sigVoidHandlePtr, fn, nil, args[:])
}
