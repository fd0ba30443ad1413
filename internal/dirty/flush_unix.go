//go:build unix && !darwin

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges msyncs each coalesced range. Sub-slices of the mapping are
// accepted by msync as long as they start on a page boundary.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start, end, ok := clamp(r, len(data))
		if !ok {
			continue
		}
		if err := unix.Msync(data[start:end], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

// fdatasync syncs file data. fullfsync has no meaning outside macOS.
func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
