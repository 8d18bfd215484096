package heaps

import (
	"unsafe"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

// MappingWindow is an active host mapping over a sub-range of a Block's raw
// memory. It performs coherency-aware read/write: writes are flushed and
// reads are invalidated only when the backing memory is not host-coherent,
// and every range handed to the device is rounded outward to the
// non-coherent atom size.
type MappingWindow struct {
	device   vk.Device
	raw      *rawMemory
	blockOff uint64 // offset of the owning block within raw
	blockLen uint64 // size of the owning block
	offset   uint64 // offset of this window within raw (blockOff + sub-range offset)
	size     uint64
	ptr      unsafe.Pointer
	atomSize uint64
	coherent bool
	closed   bool
}

func newMappingWindow(device vk.Device, raw *rawMemory, blockOff, blockLen, subOffset, subSize uint64) (*MappingWindow, error) {
	if subOffset+subSize > blockLen {
		return nil, ErrOutsideBlock
	}
	if !raw.properties.Has(vk.MemoryPropertyHostVisibleBit) {
		return nil, ErrHostInvisible
	}
	base, err := raw.ensureMapped(device)
	if err != nil {
		return nil, err
	}
	absOffset := blockOff + subOffset
	atom := device.Limits().NonCoherentAtomSize
	if atom == 0 {
		atom = 1
	}
	return &MappingWindow{
		device:   device,
		raw:      raw,
		blockOff: blockOff,
		blockLen: blockLen,
		offset:   absOffset,
		size:     subSize,
		ptr:      unsafe.Add(base, absOffset),
		atomSize: atom,
		coherent: raw.properties.Has(vk.MemoryPropertyHostCoherentBit),
	}, nil
}

// Ptr returns the host pointer to the start of this window.
func (w *MappingWindow) Ptr() unsafe.Pointer { return w.ptr }

// Size returns the window's byte length.
func (w *MappingWindow) Size() uint64 { return w.size }

// roundOutward expands [offset, offset+size) to atom-size boundaries,
// clamped to the owning raw handle.
func (w *MappingWindow) roundOutward(offset, size uint64) (uint64, uint64) {
	atom := w.atomSize
	start := (offset / atom) * atom
	end := offset + size
	if rem := end % atom; rem != 0 {
		end += atom - rem
	}
	if end > w.raw.size {
		end = w.raw.size
	}
	return start, end - start
}

// Write copies data into the window at the given sub-offset (relative to
// the window, not the block) and, unless the memory is host-coherent,
// flushes the affected range rounded to the coherency atom.
func (w *MappingWindow) Write(subOffset uint64, data []byte) error {
	if subOffset+uint64(len(data)) > w.size {
		return ErrOutsideBlock
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(w.ptr, subOffset)), len(data))
	copy(dst, data)
	if w.coherent {
		return nil
	}
	start, size := w.roundOutward(w.offset+subOffset, uint64(len(data)))
	return w.device.FlushMappedRanges([]vk.MappedRange{{Memory: w.raw.handle, Offset: start, Size: size}})
}

// Read invalidates the affected range (rounded to the coherency atom)
// unless the memory is host-coherent, then copies into buf from the window
// at the given sub-offset.
func (w *MappingWindow) Read(subOffset uint64, buf []byte) error {
	if subOffset+uint64(len(buf)) > w.size {
		return ErrOutsideBlock
	}
	if !w.coherent {
		start, size := w.roundOutward(w.offset+subOffset, uint64(len(buf)))
		if err := w.device.InvalidateMappedRanges([]vk.MappedRange{{Memory: w.raw.handle, Offset: start, Size: size}}); err != nil {
			return err
		}
	}
	src := unsafe.Slice((*byte)(unsafe.Add(w.ptr, subOffset)), len(buf))
	copy(buf, src)
	return nil
}

// Unmap releases this window's share of the driver-level mapping. Once the
// last outstanding window on a handle unmaps, the driver mapping itself is
// released.
func (w *MappingWindow) Unmap() {
	if w.closed {
		return
	}
	w.closed = true
	w.raw.releaseMap(w.device)
}
