package heaps

import "errors"

// Recoverable errors, per the taxonomy: returned to the caller, allocator
// state unchanged.
var (
	ErrOutOfDeviceMemory = errors.New("heaps: out of device memory")
	ErrOutOfHostMemory   = errors.New("heaps: out of host memory")
	ErrTooManyObjects    = errors.New("heaps: too many objects")
	ErrHeapsExhausted    = errors.New("heaps: heap budget exhausted")
	ErrNoSuitableMemory  = errors.New("heaps: no suitable memory type")
	ErrMappingFailed     = errors.New("heaps: mapping failed")

	// ErrOutsideBlock and ErrHostInvisible are the two MappingFailed reasons
	// named explicitly in §4.6; returned directly rather than wrapped so
	// callers can compare them by value.
	ErrOutsideBlock  = errors.New("heaps: mapped range outside block")
	ErrHostInvisible = errors.New("heaps: memory type is not host-visible")
)
