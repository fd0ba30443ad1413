package frame

import "github.com/mos-project/mos-core/internal/bits"

// nilIndex terminates a free list.
const nilIndex int32 = -1

// block is a block table descriptor. Its table index is its identity.
//
// pages is non-zero only for the first descriptor of a block; descriptors
// covered by a larger block are kept zeroed so that a stray address can be
// told apart from a block head.
type block struct {
	next  int32  // next free block at the same level; valid while enlisted
	pages uint32 // block size in pages, always a power of two
	free  bool
}

// buddyOf returns the table index of the buddy of the level-L block at idx.
//
// The buddy differs from idx in exactly bit L: when the bit is clear the buddy
// is the upper neighbour, when set the lower one. Both merge into the
// level L+1 block starting at idx &^ (1<<L).
func buddyOf(idx int32, level Level) int32 {
	return idx ^ (1 << level)
}

// levelOf returns floor(log2(size / pageSize)). size must be a page multiple.
func (a *BuddyAllocator) levelOf(size uint64) Level {
	return Level(bits.Log2(size >> a.pageShift))
}

// levelOfPages is levelOf for a size already expressed in pages.
func levelOfPages(pages uint32) Level {
	return Level(bits.Log2(uint64(pages)))
}

// addrOf translates a table index to its block address.
func (a *BuddyAllocator) addrOf(idx int32) Addr {
	return a.base + Addr(uint64(idx)<<a.pageShift)
}

// indexOf translates a page-aligned address inside the region to its table index.
func (a *BuddyAllocator) indexOf(addr Addr) int32 {
	return int32(uint64(addr-a.base) >> a.pageShift)
}

// sizeOf returns the byte size of the block at idx.
func (a *BuddyAllocator) sizeOf(idx int32) uint64 {
	return uint64(a.blocks[idx].pages) << a.pageShift
}
