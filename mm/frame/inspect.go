package frame

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mos-project/mos-core/internal/bits"
)

// Blocks returns the block map in address order. Walking stops early if the
// table is corrupt; Check reports why.
func (a *BuddyAllocator) Blocks() []Block {
	var out []Block
	for idx := int32(0); idx < a.pages; {
		b := a.blocks[idx]
		if b.pages == 0 {
			break
		}
		out = append(out, Block{
			Addr:  a.addrOf(idx),
			Size:  a.sizeOf(idx),
			Level: levelOfPages(b.pages),
			Free:  b.free,
		})
		idx += int32(b.pages)
	}
	return out
}

// FreeBlocks returns the addresses on level's free list, head first.
func (a *BuddyAllocator) FreeBlocks(level Level) []Addr {
	if level < 0 || level > a.maxLevel {
		return nil
	}
	var out []Addr
	for cur := a.heads[level]; cur != nilIndex && len(out) <= int(a.pages); cur = a.blocks[cur].next {
		out = append(out, a.addrOf(cur))
	}
	return out
}

// Stats returns allocator counters and current space usage.
func (a *BuddyAllocator) Stats() Stats {
	st := Stats{
		AllocCalls:   a.stats.allocCalls,
		FreeCalls:    a.stats.freeCalls,
		FailedAllocs: a.stats.failedAllocs,
		FailedFrees:  a.stats.failedFrees,
		Splits:       a.stats.splits,
		Merges:       a.stats.merges,
		Outstanding:  a.allocated,
		UsedBytes:    a.usedBytes,
		FreeBytes:    a.size - a.usedBytes,
		FreeBlocks:   make([]int, a.maxLevel+1),
	}
	for l := Level(0); l <= a.maxLevel; l++ {
		st.FreeBlocks[l] = a.listLen(l, int(a.pages))
	}
	return st
}

// Check validates the allocator's structural invariants:
//
//   - blocks tile the region exactly, each aligned to its own power-of-two size
//   - descriptors inside a block are blank
//   - every free block is on its level's free list exactly once, and every
//     list entry is a free block of that level
//   - no two free buddies of the same level coexist
//   - the outstanding counter matches the number of allocated blocks
//
// Returns an *InvariantError describing the first violation found.
func (a *BuddyAllocator) Check() error {
	used := 0
	var usedBytes uint64
	freeAt := make(map[int32]Level)

	for idx := int32(0); idx < a.pages; {
		b := a.blocks[idx]
		switch {
		case b.pages == 0:
			return a.violation("gap at 0x%x: no block starts here", a.addrOf(idx))
		case !bits.IsPow2(uint64(b.pages)):
			return a.violation("block 0x%x has %d pages, not a power of two", a.addrOf(idx), b.pages)
		case uint32(idx)%b.pages != 0:
			return a.violation("block 0x%x (%d pages) is misaligned", a.addrOf(idx), b.pages)
		case int64(idx)+int64(b.pages) > int64(a.pages):
			return a.violation("block 0x%x (%d pages) overruns the region", a.addrOf(idx), b.pages)
		}
		for i := idx + 1; i < idx+int32(b.pages); i++ {
			if a.blocks[i].pages != 0 {
				return a.violation("block 0x%x overlaps block 0x%x", a.addrOf(idx), a.addrOf(i))
			}
		}
		if b.free {
			freeAt[idx] = levelOfPages(b.pages)
		} else {
			used++
			usedBytes += a.sizeOf(idx)
		}
		idx += int32(b.pages)
	}

	if used != a.allocated {
		return a.violation("outstanding counter is %d, table has %d allocated blocks", a.allocated, used)
	}
	if usedBytes != a.usedBytes {
		return a.violation("used bytes counter is %d, table has %d", a.usedBytes, usedBytes)
	}

	seen := make(map[int32]bool, len(freeAt))
	for l := Level(0); l <= a.maxLevel; l++ {
		steps := 0
		for cur := a.heads[l]; cur != nilIndex; cur = a.blocks[cur].next {
			if cur < 0 || cur >= a.pages {
				return a.violation("level %d list points outside the table (%d)", l, cur)
			}
			if steps++; steps > int(a.pages) {
				return a.violation("level %d list has a cycle", l)
			}
			lvl, ok := freeAt[cur]
			if !ok {
				return a.violation("level %d list holds 0x%x, which is not a free block", l, a.addrOf(cur))
			}
			if lvl != l {
				return a.violation("level %d list holds level %d block 0x%x", l, lvl, a.addrOf(cur))
			}
			if seen[cur] {
				return a.violation("block 0x%x enlisted twice", a.addrOf(cur))
			}
			seen[cur] = true
		}
	}
	if len(seen) != len(freeAt) {
		return a.violation("%d free blocks, %d enlisted", len(freeAt), len(seen))
	}

	for idx, l := range freeAt {
		buddy := buddyOf(idx, l)
		if bl, ok := freeAt[buddy]; ok && bl == l {
			return a.violation("free buddies 0x%x and 0x%x at level %d were not merged",
				a.addrOf(idx), a.addrOf(buddy), l)
		}
	}

	return nil
}

func (a *BuddyAllocator) violation(format string, args ...any) error {
	return &InvariantError{Reason: fmt.Sprintf(format, args...)}
}

// PrintStats writes a human-readable allocator report to w.
func (a *BuddyAllocator) PrintStats(w io.Writer) {
	st := a.Stats()
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "\n====== FRAME ALLOCATOR ======\n")
	p.Fprintf(w, "  Region:        %s - %s\n", hexAddr(a.base), hexAddr(a.base+Addr(a.size)))
	p.Fprintf(w, "  Size:          %d bytes (%d pages of %d)\n", a.size, a.pages, a.pageSize)
	p.Fprintf(w, "  Used:          %d bytes in %d blocks\n", st.UsedBytes, st.Outstanding)
	p.Fprintf(w, "  Free:          %d bytes\n", st.FreeBytes)
	p.Fprintf(w, "  Alloc calls:   %d (%d failed)\n", st.AllocCalls, st.FailedAllocs)
	p.Fprintf(w, "  Free calls:    %d (%d failed)\n", st.FreeCalls, st.FailedFrees)
	p.Fprintf(w, "  Splits/Merges: %d / %d\n", st.Splits, st.Merges)

	p.Fprintf(w, "\nFree lists:\n")
	for l, n := range st.FreeBlocks {
		if n == 0 {
			continue
		}
		p.Fprintf(w, "  L%-2d %12d bytes  x%d\n", l, a.pageSize<<l, n)
	}
	p.Fprintf(w, "=============================\n\n")
}

func hexAddr(addr Addr) string {
	return fmt.Sprintf("0x%x", uint64(addr))
}
