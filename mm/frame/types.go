package frame

// Addr is a byte address inside (or outside) the managed region.
type Addr uint64

// Level is log2 of a block's size in pages: level L blocks span PageSize<<L bytes.
type Level int

// Block describes one block of the block map, in address order.
type Block struct {
	Addr  Addr
	Size  uint64
	Level Level
	Free  bool
}

// Allocator defines the frame allocation interface.
//
// Implementations:
//   - BuddyAllocator: the single-context buddy allocator (not goroutine-safe)
//   - Locked: BuddyAllocator behind a mutex
type Allocator interface {
	// Allocate returns the address of a free block of at least size bytes.
	// The block size is size rounded up to a power-of-two number of pages.
	Allocate(size uint64) (Addr, error)

	// Free releases a block returned by Allocate and coalesces it with its buddies.
	Free(addr Addr) error

	// SizeOf returns the block size of a live allocation.
	SizeOf(addr Addr) (uint64, bool)

	// Cleanup reports the number of allocations still outstanding.
	// It does not release anything.
	Cleanup() int

	// Blocks returns the block map in address order.
	Blocks() []Block

	// Stats returns allocator counters.
	Stats() Stats

	// Check validates the allocator's structural invariants.
	Check() error
}

// Stats holds allocator counters and a snapshot of space usage.
type Stats struct {
	AllocCalls   int // Allocate() calls, including failures
	FreeCalls    int // Free() calls, including failures
	FailedAllocs int // Allocate() calls that returned an error
	FailedFrees  int // Free() calls that returned an error
	Splits       int // block splits
	Merges       int // buddy merges

	Outstanding int    // blocks currently allocated
	UsedBytes   uint64 // bytes in allocated blocks
	FreeBytes   uint64 // bytes in free blocks

	// FreeBlocks[L] is the length of level L's free list.
	FreeBlocks []int
}
