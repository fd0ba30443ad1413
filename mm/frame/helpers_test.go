package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	kib = 1024
	mib = 1024 * kib
)

// newTestAllocator creates an allocator over [base, base+size) with the default config.
func newTestAllocator(t testing.TB, base Addr, size uint64) *BuddyAllocator {
	t.Helper()
	fa, err := Init(base, size, &Config{})
	require.NoError(t, err)
	require.NoError(t, fa.Check())
	return fa
}

// freeLists snapshots every free list, head first.
func freeLists(fa *BuddyAllocator) [][]Addr {
	out := make([][]Addr, fa.MaxLevel()+1)
	for l := Level(0); l <= fa.MaxLevel(); l++ {
		out[l] = fa.FreeBlocks(l)
	}
	return out
}

// recorder collects observer events.
type recorder struct {
	events []Event
}

func (r *recorder) Observe(e Event) { r.events = append(r.events, e) }

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.events = r.events[:0] }
