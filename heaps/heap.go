package heaps

// MemoryHeap is the accounting record for one driver heap: total size and
// bytes currently handed out to memory types backed by it. Multiple memory
// types may share one heap.
type MemoryHeap struct {
	size uint64
	used uint64
}

// available reports the remaining budget. It never underflows: used never
// exceeds size as long as callers only add byte counts returned by
// MemoryType.alloc and subtract byte counts returned by MemoryType.free.
func (h *MemoryHeap) available() uint64 {
	return h.size - h.used
}

// Size returns the heap's total advertised size.
func (h *MemoryHeap) Size() uint64 { return h.size }

// Used returns bytes currently charged against this heap.
func (h *MemoryHeap) Used() uint64 { return h.used }
