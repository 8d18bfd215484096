//go:build windows

package simdevice

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocPages reserves and commits page-aligned memory directly from the OS
// so that host-visible blocks are backed by genuine pages rather than a
// plain Go slice.
func allocPages(size int) ([]byte, error) {
	if size == 0 {
		size = 1
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("VirtualAlloc: %w", err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func freePages(b []byte) {
	if len(b) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
