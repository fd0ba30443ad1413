package frame

import (
	"fmt"
	"math"

	"github.com/mos-project/mos-core/internal/bits"
)

// BuddyAllocator hands out power-of-two runs of pages from one contiguous
// region and coalesces released blocks with their buddies.
//
// All state lives in the allocator: the block table (one descriptor per page
// of the region), one free-list head per level, and the outstanding-block
// counter. Blocks are addressed by table index; a block's address is
// base + index*pageSize.
//
// NOT goroutine-safe. Wrap it in a Locked to share it.
type BuddyAllocator struct {
	base      Addr
	size      uint64 // usable bytes, a page multiple
	pageSize  uint64
	pageShift uint
	pages     int32 // region length in pages
	maxLevel  Level

	blocks []block
	heads  []int32 // free-list head per level

	allocated int
	usedBytes uint64

	observer Observer
	stats    counters
}

type counters struct {
	allocCalls   int
	freeCalls    int
	failedAllocs int
	failedFrees  int
	splits       int
	merges       int
}

// Init creates an allocator managing [base, base+size).
//
// base is rounded up to a page boundary (the skipped bytes are lost) and the
// remaining size is rounded down to a page multiple. A power-of-two region is
// installed as a single root block; any other size is installed as its binary
// decomposition, largest block first, so every block starts at an index
// aligned to its own size.
//
// Returns ErrInvalidArgument if less than one page remains or cfg is invalid,
// and ErrRegionTooLarge if the region has more pages than cfg.MaxPages.
func Init(base Addr, size uint64, cfg *Config) (*BuddyAllocator, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	aligned := Addr(bits.AlignUp(uint64(base), c.PageSize))
	if aligned < base {
		return nil, fmt.Errorf("%w: base 0x%x overflows when page aligned", ErrInvalidArgument, base)
	}
	if slack := uint64(aligned - base); slack < size {
		size -= slack
	} else {
		size = 0
	}
	size = bits.AlignDown(size, c.PageSize)
	if size == 0 {
		return nil, fmt.Errorf("%w: region smaller than one %d-byte page", ErrInvalidArgument, c.PageSize)
	}
	if uint64(aligned) > math.MaxUint64-size {
		return nil, fmt.Errorf("%w: region end overflows", ErrInvalidArgument)
	}

	shift := uint(bits.Log2(c.PageSize))
	pages := size >> shift
	if pages > c.MaxPages {
		return nil, fmt.Errorf("%w: %d pages, capacity %d", ErrRegionTooLarge, pages, c.MaxPages)
	}

	a := &BuddyAllocator{
		base:      aligned,
		size:      size,
		pageSize:  c.PageSize,
		pageShift: shift,
		pages:     int32(pages),
		maxLevel:  Level(bits.Log2(c.MaxPages)),
		blocks:    make([]block, pages),
		observer:  c.Observer,
	}
	if a.observer == nil {
		a.observer = envObserver()
	}

	a.heads = make([]int32, a.maxLevel+1)
	for i := range a.heads {
		a.heads[i] = nilIndex
	}

	// Install root blocks. Taking the largest power of two that still fits
	// keeps each root aligned to its size.
	for idx := int32(0); idx < a.pages; {
		n := uint32(1) << bits.Log2(uint64(a.pages-idx))
		a.blocks[idx] = block{pages: n, free: true, next: nilIndex}
		a.push(levelOfPages(n), idx)
		idx += int32(n)
	}

	a.emit(EventInit, a.base, a.size, a.levelOf(a.size))
	return a, nil
}

// Allocate returns the address of a free block of at least size bytes.
//
// size is rounded up to a page multiple and then to a power-of-two number of
// pages. The smallest non-empty free list at or above that level supplies a
// block, which is split in halves until it has the requested size; every upper
// half is published on the free list one level down.
//
// Returns ErrInvalidArgument for size 0 and ErrOutOfMemory when no free block
// is large enough. The allocator is unchanged on error.
func (a *BuddyAllocator) Allocate(size uint64) (Addr, error) {
	a.stats.allocCalls++

	if size == 0 {
		a.stats.failedAllocs++
		return 0, fmt.Errorf("%w: zero-sized allocation", ErrInvalidArgument)
	}
	if size > a.size {
		a.stats.failedAllocs++
		return 0, fmt.Errorf("%w: %d bytes requested, region is %d", ErrOutOfMemory, size, a.size)
	}

	need := bits.NextPow2(bits.AlignUp(size, a.pageSize) >> a.pageShift)
	level := levelOfPages(uint32(need))

	found := level
	for found <= a.maxLevel && a.heads[found] == nilIndex {
		found++
	}
	if found > a.maxLevel {
		a.stats.failedAllocs++
		return 0, fmt.Errorf("%w: no free block of %d pages", ErrOutOfMemory, need)
	}

	idx := a.pop(found)

	for uint64(a.blocks[idx].pages/2) >= need {
		half := a.blocks[idx].pages / 2
		found--

		a.blocks[idx].pages = half
		buddy := idx + int32(half)
		a.blocks[buddy] = block{pages: half, free: true, next: nilIndex}
		a.push(found, buddy)

		a.stats.splits++
		a.emit(EventSplit, a.addrOf(buddy), a.sizeOf(buddy), found)
	}

	a.blocks[idx].free = false
	a.allocated++
	a.usedBytes += a.sizeOf(idx)

	addr := a.addrOf(idx)
	a.emit(EventAlloc, addr, a.sizeOf(idx), found)
	return addr, nil
}

// Free releases the block at addr and merges it with its buddy for as long as
// the buddy is a free block of the same size.
//
// Errors (the allocator is unchanged on error):
//   - ErrInvalidPointer: addr below the region or not page aligned
//   - ErrOutOfRange: addr at or past the end of the region
//   - ErrDoubleFree: addr is not the start of an allocated block
func (a *BuddyAllocator) Free(addr Addr) error {
	a.stats.freeCalls++

	idx, err := a.lookup(addr)
	if err != nil {
		a.stats.failedFrees++
		return err
	}

	b := &a.blocks[idx]
	b.free = true
	a.allocated--
	a.usedBytes -= a.sizeOf(idx)

	level := levelOfPages(b.pages)
	a.push(level, idx)
	a.emit(EventFree, addr, a.sizeOf(idx), level)

	for a.blocks[idx].pages != uint32(a.pages) {
		buddy := buddyOf(idx, level)
		if buddy >= a.pages {
			break
		}
		bb := a.blocks[buddy]
		if !bb.free || bb.pages != a.blocks[idx].pages {
			break
		}

		a.unlink(level, idx)
		a.unlink(level, buddy)

		lo, hi := idx, buddy
		if hi < lo {
			lo, hi = hi, lo
		}
		pages := a.blocks[lo].pages * 2
		a.blocks[hi] = block{next: nilIndex}
		a.blocks[lo] = block{pages: pages, free: true, next: nilIndex}

		level++
		a.push(level, lo)
		idx = lo

		a.stats.merges++
		a.emit(EventMerge, a.addrOf(lo), a.sizeOf(lo), level)
	}

	return nil
}

// lookup validates addr as the start of an allocated block and returns its index.
func (a *BuddyAllocator) lookup(addr Addr) (int32, error) {
	if addr < a.base || uint64(addr)&(a.pageSize-1) != 0 {
		return nilIndex, fmt.Errorf("%w: 0x%x", ErrInvalidPointer, uint64(addr))
	}
	if uint64(addr-a.base) >= a.size {
		return nilIndex, fmt.Errorf("%w: 0x%x (region ends at 0x%x)",
			ErrOutOfRange, uint64(addr), uint64(a.base)+a.size)
	}
	idx := a.indexOf(addr)
	if b := a.blocks[idx]; b.pages == 0 || b.free {
		return nilIndex, fmt.Errorf("%w: 0x%x", ErrDoubleFree, uint64(addr))
	}
	return idx, nil
}

// SizeOf returns the block size of the live allocation at addr.
func (a *BuddyAllocator) SizeOf(addr Addr) (uint64, bool) {
	idx, err := a.lookup(addr)
	if err != nil {
		return 0, false
	}
	return a.sizeOf(idx), true
}

// Cleanup reports how many allocations are still outstanding. The block table
// is left intact; a non-zero count is also reported to the observer as a leak.
func (a *BuddyAllocator) Cleanup() int {
	if a.allocated > 0 {
		a.emit(EventLeak, 0, a.usedBytes, 0)
	}
	return a.allocated
}

// Outstanding returns the number of allocated blocks.
func (a *BuddyAllocator) Outstanding() int { return a.allocated }

// Base returns the page-aligned start of the managed region.
func (a *BuddyAllocator) Base() Addr { return a.base }

// Size returns the managed region size in bytes.
func (a *BuddyAllocator) Size() uint64 { return a.size }

// PageSize returns the allocation granularity.
func (a *BuddyAllocator) PageSize() uint64 { return a.pageSize }

// MaxLevel returns the highest level of the free-list registry.
func (a *BuddyAllocator) MaxLevel() Level { return a.maxLevel }

func (a *BuddyAllocator) emit(kind EventKind, addr Addr, size uint64, level Level) {
	if a.observer == nil {
		return
	}
	a.observer.Observe(Event{
		Kind:        kind,
		Addr:        addr,
		Size:        size,
		Level:       level,
		Outstanding: a.allocated,
	})
}
