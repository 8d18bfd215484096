// Package heaps implements a GPU device-memory allocator layered over a
// Vulkan-style low-level API: memory-type selection by usage fitness and
// heap budget, three sub-allocator strategies, and a coherency-aware
// mapping state machine.
//
//	        Heaps.Allocate(mask, usage, size, align)
//	                    |
//	                    v
//	   +----------------------------------+
//	   |   memory-type selection (fitness  |
//	   |   + heap-budget admission)        |
//	   +----------------------------------+
//	                    |
//	                    v
//	   +----------------------------------+
//	   |           MemoryType              |
//	   |  routes by usage + size cap       |
//	   +--------+-----------+-------------+
//	            |           |            |
//	            v           v            v
//	      +-----------+ +-------+  +-----------+
//	      | Dedicated | | Arena |  |  Dynamic  |
//	      +-----------+ +-------+  +-----------+
//	            ^           |            |
//	            |           v            v
//	            +----  chunk backing (raw allocations)
//
// Dedicated hands out one raw allocation per block. Arena bump-allocates
// inside fixed-size chunks and releases a drained chunk from the head once
// it is no longer the tail. Dynamic splits fixed-size chunks into
// power-of-two size classes tracked by a bitmap, and never coalesces across
// classes.
//
// Heaps carries no internal lock: callers must serialize every mutating
// call against one Heaps instance.
package heaps
