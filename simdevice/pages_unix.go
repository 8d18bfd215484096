//go:build linux || darwin

package simdevice

import "golang.org/x/sys/unix"

// allocPages maps anonymous, page-aligned memory directly from the OS so
// that host-visible blocks are backed by genuine mapped pages rather than a
// plain Go slice.
func allocPages(size int) ([]byte, error) {
	if size == 0 {
		size = 1
	}
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func freePages(b []byte) {
	_ = unix.Munmap(b)
}
