//go:build !unix

package dirty

import "context"

// flushRanges is a no-op without mmap: the image is a heap copy written back
// when the mapping is released.
func (t *Tracker) flushRanges(ctx context.Context, _ []byte) error {
	return ctx.Err()
}

func fdatasync(int, bool) error { return nil }
