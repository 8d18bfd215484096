package vkdevice

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

// goffi expects args[] to contain pointers to WHERE argument values are
// stored, not the values themselves: for a scalar, pass &value; for a
// pointer-typed argument, store the pointer in a local and pass &local.

var (
	vulkanLib             unsafe.Pointer
	vkGetInstanceProcAddr unsafe.Pointer

	cifGetInstanceProcAddr types.CallInterface

	sigResultPtrPtrPtr       types.CallInterface // vkCreateInstance
	sigVoidHandlePtr         types.CallInterface // vkDestroyInstance, vkDestroyDevice, vkGetPhysicalDevice{Memory}Properties
	sigResultHandlePtrPtr    types.CallInterface // vkEnumeratePhysicalDevices
	sigResultHandlePtrPtrPtr types.CallInterface // vkCreateDevice, vkAllocateMemory
	sigVoidHandleHandlePtr   types.CallInterface // vkFreeMemory
	sigVoidHandleHandle      types.CallInterface // vkUnmapMemory
	sigResultHandleU32Ptr    types.CallInterface // vkFlushMappedMemoryRanges, vkInvalidateMappedMemoryRanges
	sigResultMapMemory       types.CallInterface // vkMapMemory: (handle, handle, u64, u64, u32, ptr) -> result

	initOnce sync.Once
	initErr  error
)

func libraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "vulkan-1.dll"
	case "darwin":
		return "libvulkan.dylib" // MoltenVK
	default:
		return "libvulkan.so.1"
	}
}

// initLoader loads the Vulkan library and prepares every CallInterface this
// package uses. Safe to call multiple times; only the first call does work.
func initLoader() error {
	initOnce.Do(func() {
		initErr = doInitLoader()
	})
	return initErr
}

func doInitLoader() error {
	var err error
	vulkanLib, err = ffi.LoadLibrary(libraryName())
	if err != nil {
		return fmt.Errorf("vkdevice: failed to load %s: %w", libraryName(), err)
	}

	vkGetInstanceProcAddr, err = ffi.GetSymbol(vulkanLib, "vkGetInstanceProcAddr")
	if err != nil {
		return fmt.Errorf("vkdevice: vkGetInstanceProcAddr not found: %w", err)
	}

	ptr := types.PointerTypeDescriptor
	u32 := types.UInt32TypeDescriptor
	u64 := types.UInt64TypeDescriptor
	resultRet := types.SInt32TypeDescriptor // VkResult is int32
	voidRet := types.VoidTypeDescriptor

	if err := ffi.PrepareCallInterface(&cifGetInstanceProcAddr, types.DefaultCall,
		ptr, []*types.TypeDescriptor{u64, ptr}); err != nil {
		return fmt.Errorf("vkdevice: prepare GetInstanceProcAddr: %w", err)
	}
	if err := ffi.PrepareCallInterface(&sigResultPtrPtrPtr, types.DefaultCall,
		resultRet, []*types.TypeDescriptor{ptr, ptr, ptr}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigVoidHandlePtr, types.DefaultCall,
		voidRet, []*types.TypeDescriptor{u64, ptr}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigResultHandlePtrPtr, types.DefaultCall,
		resultRet, []*types.TypeDescriptor{u64, ptr, ptr}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigResultHandlePtrPtrPtr, types.DefaultCall,
		resultRet, []*types.TypeDescriptor{u64, ptr, ptr, ptr}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigVoidHandleHandlePtr, types.DefaultCall,
		voidRet, []*types.TypeDescriptor{u64, u64, ptr}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigVoidHandleHandle, types.DefaultCall,
		voidRet, []*types.TypeDescriptor{u64, u64}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigResultHandleU32Ptr, types.DefaultCall,
		resultRet, []*types.TypeDescriptor{u64, u32, ptr}); err != nil {
		return err
	}
	if err := ffi.PrepareCallInterface(&sigResultMapMemory, types.DefaultCall,
		resultRet, []*types.TypeDescriptor{u64, u64, u64, u64, u32, ptr}); err != nil {
		return err
	}
	return nil
}

// getInstanceProcAddr resolves a Vulkan function pointer. Pass instance=0
// for global functions (vkCreateInstance, vkEnumerateInstance*).
func getInstanceProcAddr(instance uint64, name string) unsafe.Pointer {
	cname := append([]byte(name), 0)
	namePtr := unsafe.Pointer(&cname[0])
	args := [2]unsafe.Pointer{
		unsafe.Pointer(&instance),
		unsafe.Pointer(&namePtr),
	}
	var result unsafe.Pointer
	_ = ffi.CallFunction(&cifGetInstanceProcAddr, vkGetInstanceProcAddr, unsafe.Pointer(&result), args[:])
	return result
}

func mustProcAddr(instance uint64, name string) (unsafe.Pointer, error) {
	p := getInstanceProcAddr(instance, name)
	if p == nil {
		return nil, fmt.Errorf("vkdevice: %s not available", name)
	}
	return p, nil
}
