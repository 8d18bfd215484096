package vkdevice

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

const apiVersion1_0 uint32 = 1 << 22 // VK_API_VERSION_1_0 = VK_MAKE_API_VERSION(0,1,0,0)

// createVkInstance calls vkCreateInstance with no layers/extensions enabled
// — this package only ever touches device memory, never presentation.
func createVkInstance(appName string) (uint64, error) {
	createInstance, err := mustProcAddr(0, "vkCreateInstance")
	if err != nil {
		return 0, err
	}

	appNameC := append([]byte(appName), 0)
	app := applicationInfo{
		sType:            structureTypeApplicationInfo,
		pApplicationName: unsafe.Pointer(&appNameC[0]),
		apiVersion:       apiVersion1_0,
	}
	appPtr := unsafe.Pointer(&app)
	info := instanceCreateInfo{
		sType:            structureTypeInstanceCreateInfo,
		pApplicationInfo: appPtr,
	}

	var instance uint64
	infoPtr := unsafe.Pointer(&info)
	var nullPtr unsafe.Pointer
	instancePtr := unsafe.Pointer(&instance)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&nullPtr),
		unsafe.Pointer(&instancePtr),
	}
	var result int32
	if err := ffi.CallFunction(&sigResultPtrPtrPtr, createInstance, unsafe.Pointer(&result), args[:]); err != nil {
		return 0, fmt.Errorf("vkdevice: vkCreateInstance call failed: %w", err)
	}
	if result != 0 {
		return 0, fmt.Errorf("vkdevice: vkCreateInstance returned VkResult(%d)", result)
	}
	return instance, nil
}

// firstPhysicalDevice enumerates physical devices and returns the first.
// Picking a "best" GPU (discrete vs integrated) is a renderer concern; a
// memory allocator only needs any device whose memory table it can read.
func firstPhysicalDevice(instance uint64) (uint64, error) {
	enumerate, err := mustProcAddr(instance, "vkEnumeratePhysicalDevices")
	if err != nil {
		return 0, err
	}

	var count uint32
	var nullPtr unsafe.Pointer
	countPtr := unsafe.Pointer(&count)
	countArgs := [3]unsafe.Pointer{
		unsafe.Pointer(&instance),
		unsafe.Pointer(&countPtr),
		unsafe.Pointer(&nullPtr),
	}
	var result int32
	if err := ffi.CallFunction(&sigResultHandlePtrPtr, enumerate, unsafe.Pointer(&result), countArgs[:]); err != nil {
		return 0, fmt.Errorf("vkdevice: vkEnumeratePhysicalDevices (count) failed: %w", err)
	}
	if result != 0 || count == 0 {
		return 0, fmt.Errorf("vkdevice: no Vulkan physical devices available (VkResult=%d, count=%d)", result, count)
	}

	devices := make([]uint64, count)
	devicesPtr := unsafe.Pointer(&devices[0])
	fetchArgs := [3]unsafe.Pointer{
		unsafe.Pointer(&instance),
		unsafe.Pointer(&countPtr),
		unsafe.Pointer(&devicesPtr),
	}
	if err := ffi.CallFunction(&sigResultHandlePtrPtr, enumerate, unsafe.Pointer(&result), fetchArgs[:]); err != nil {
		return 0, fmt.Errorf("vkdevice: vkEnumeratePhysicalDevices (fetch) failed: %w", err)
	}
	if result != 0 {
		return 0, fmt.Errorf("vkdevice: vkEnumeratePhysicalDevices returned VkResult(%d)", result)
	}
	return devices[0], nil
}

// queryPhysicalDevice reads the memory-type/heap table and the
// non-coherent atom size (buried in VkPhysicalDeviceLimits) for device.
func queryPhysicalDevice(instance, physicalDevice uint64) (vk.DeviceLimits, uint64, error) {
	getMemProps, err := mustProcAddr(instance, "vkGetPhysicalDeviceMemoryProperties")
	if err != nil {
		return vk.DeviceLimits{}, 0, err
	}
	getProps, err := mustProcAddr(instance, "vkGetPhysicalDeviceProperties")
	if err != nil {
		return vk.DeviceLimits{}, 0, err
	}

	var memProps physicalDeviceMemoryProperties
	memPropsPtr := unsafe.Pointer(&memProps)
	memArgs := [2]unsafe.Pointer{
		unsafe.Pointer(&physicalDevice),
		unsafe.Pointer(&memPropsPtr),
	}
	_ = ffi.CallFunction(&sigVoidHandlePtr, getMemProps, nil, memArgs[:])

	var props physicalDeviceProperties
	propsPtr := unsafe.Pointer(&props)
	propArgs := [2]unsafe.Pointer{
		unsafe.Pointer(&physicalDevice),
		unsafe.Pointer(&propsPtr),
	}
	_ = ffi.CallFunction(&sigVoidHandlePtr, getProps, nil, propArgs[:])

	limits := vk.DeviceLimits{
		MemoryTypes: make([]vk.MemoryTypeInfo, memProps.memoryTypeCount),
		MemoryHeaps: make([]vk.MemoryHeapInfo, memProps.memoryHeapCount),
	}
	for i := uint32(0); i < memProps.memoryTypeCount; i++ {
		t := memProps.memoryTypes[i]
		limits.MemoryTypes[i] = vk.MemoryTypeInfo{
			Properties: vk.MemoryPropertyFlags(t.propertyFlags),
			HeapIndex:  t.heapIndex,
		}
	}
	for i := uint32(0); i < memProps.memoryHeapCount; i++ {
		h := memProps.memoryHeaps[i]
		limits.MemoryHeaps[i] = vk.MemoryHeapInfo{
			Size:  h.size,
			Flags: vk.MemoryHeapFlags(h.flags),
		}
	}
	return limits, props.limits.nonCoherentAtomSize, nil
}

// createLogicalDevice creates a VkDevice with a single queue on family 0.
// The queue itself is never used by this package — it only exists because
// vkCreateDevice requires at least one queue create info — but a caller
// wiring command submission against the same VkDevice can fetch it with
// vkGetDeviceQueue(device, 0, 0, ...) independently.
func createLogicalDevice(instance, physicalDevice uint64) (uint64, error) {
	createDevice, err := mustProcAddr(instance, "vkCreateDevice")
	if err != nil {
		return 0, err
	}

	priority := float32(1.0)
	queueInfo := deviceQueueCreateInfo{
		sType:            structureTypeDeviceQueueCreateInfo,
		queueFamilyIndex: 0,
		queueCount:       1,
		pQueuePriorities: unsafe.Pointer(&priority),
	}
	queueInfoPtr := unsafe.Pointer(&queueInfo)
	info := deviceCreateInfo{
		sType:                structureTypeDeviceCreateInfo,
		queueCreateInfoCount: 1,
		pQueueCreateInfos:    queueInfoPtr,
	}

	var device uint64
	infoPtr := unsafe.Pointer(&info)
	var nullPtr unsafe.Pointer
	devicePtr := unsafe.Pointer(&device)
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&physicalDevice),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&nullPtr),
		unsafe.Pointer(&devicePtr),
	}
	var result int32
	if err := ffi.CallFunction(&sigResultHandlePtrPtrPtr, createDevice, unsafe.Pointer(&result), args[:]); err != nil {
		return 0, fmt.Errorf("vkdevice: vkCreateDevice call failed: %w", err)
	}
	if result != 0 {
		return 0, fmt.Errorf("vkdevice: vkCreateDevice returned VkResult(%d)", result)
	}
	return device, nil
}
