// Package vkdevice implements heaps/vk.Device against a real system Vulkan
// loader through goffi dynamic FFI. It bootstraps just enough of the
// instance/physical-device/device chain to expose the memory entry points
// heaps needs (vkAllocateMemory, vkFreeMemory, vkMapMemory, vkUnmapMemory,
// vkFlushMappedMemoryRanges, vkInvalidateMappedMemoryRanges) plus the
// memory-type/heap table and non-coherent atom size read at startup.
//
// Command-buffer submission, queues, swapchains, and every other Vulkan
// surface are out of scope here; a caller embedding vkdevice for rendering
// brings its own device wrapper and only borrows this one for allocation.
package vkdevice
