// Package frame provides a buddy allocator for physical memory frames.
//
// # Overview
//
// A BuddyAllocator manages one contiguous, page-aligned region and hands out
// blocks whose size is a power-of-two multiple of the page size. Released
// blocks are merged with their buddy as long as the buddy is free, so a fully
// released region always returns to the layout it had right after Init.
//
// # Block Table
//
// The allocator keeps one descriptor per page of the region. A block is
// identified by the table index of its first page; the descriptor records the
// block size and whether it is free. Addresses are derived from indices:
//
//	addr  = base + index*pageSize
//	index = (addr - base) / pageSize
//
// # Levels and Free Lists
//
// A level L block spans pageSize<<L bytes. Each level has a singly linked free
// list threaded through the descriptors by index:
//
//	Level 0:  4 KB
//	Level 1:  8 KB
//	Level 2: 16 KB
//	...
//	Level 18: 1 GB   (DefaultMaxPages)
//
// # Buddies
//
// The buddy of a level L block at index i is the block at i ^ (1<<L). Buddies
// are the two halves produced by one split and are the only pairs ever merged.
//
// # Usage Example
//
//	fa, err := frame.Init(0x100000, 16<<20, nil)
//	if err != nil {
//	    return err
//	}
//
//	addr, err := fa.Allocate(3 * 4096) // served by a 16 KB block
//	if err != nil {
//	    return err
//	}
//
//	if err := fa.Free(addr); err != nil {
//	    return err
//	}
//
//	if n := fa.Cleanup(); n != 0 {
//	    log.Printf("%d frames leaked", n)
//	}
//
// # Errors
//
//   - ErrOutOfMemory: no free block large enough
//   - ErrInvalidArgument: zero-sized request, bad region or config
//   - ErrInvalidPointer: release below the region or misaligned
//   - ErrOutOfRange: release past the region end
//   - ErrDoubleFree: release of a block that is not allocated
//
// A failed operation leaves the allocator unchanged.
//
// # Tracing
//
// Config.Observer receives every split, merge, alloc and free. Setting the
// MOS_LOG_FRAMES environment variable installs a log/slog observer on stderr
// for allocators created without one.
//
// # Thread Safety
//
// BuddyAllocator is not thread-safe. Use Locked to share one allocator
// between goroutines.
package frame
