package dirty

import "context"

// Mapping is the memory a Tracker flushes: the mapped bytes and the file
// descriptor behind them.
type Mapping interface {
	Bytes() []byte
	FD() int
}

// DirtyTracker is the minimal interface for recording modified byte ranges.
// Components that touch mapped memory but never flush it depend on this.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the mapping.
	Add(off, length int)
}

// FlushableTracker extends DirtyTracker with persistence control.
type FlushableTracker interface {
	DirtyTracker

	// Flush writes every dirty page back to the image file.
	Flush(ctx context.Context) error

	// Sync makes flushed pages durable according to mode.
	Sync(ctx context.Context, mode FlushMode) error

	// Reset forgets all dirty ranges without flushing them.
	Reset()
}

var _ FlushableTracker = (*Tracker)(nil)
