package frame

import (
	"io"
	"sync"
)

// Locked serializes every operation on a BuddyAllocator behind one mutex.
// Each call is a single critical section, so concurrent Allocate and Free
// calls observe the same ordering a single-threaded caller would produce.
type Locked struct {
	mu sync.Mutex
	a  *BuddyAllocator
}

var (
	_ Allocator = (*BuddyAllocator)(nil)
	_ Allocator = (*Locked)(nil)
)

// NewLocked wraps a. a must not be used directly afterwards.
func NewLocked(a *BuddyAllocator) *Locked {
	return &Locked{a: a}
}

func (l *Locked) Allocate(size uint64) (Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Allocate(size)
}

func (l *Locked) Free(addr Addr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Free(addr)
}

func (l *Locked) SizeOf(addr Addr) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.SizeOf(addr)
}

func (l *Locked) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Cleanup()
}

func (l *Locked) Blocks() []Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Blocks()
}

func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

func (l *Locked) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Check()
}

// PrintStats writes the wrapped allocator's report to w.
func (l *Locked) PrintStats(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.a.PrintStats(w)
}
