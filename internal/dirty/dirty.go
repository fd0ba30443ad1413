package dirty

import (
	"context"
	"os"
	"sort"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// FlushMode controls how Sync makes flushed pages durable.
type FlushMode int

const (
	// FlushAuto calls fdatasync (fsync on macOS).
	FlushAuto FlushMode = iota

	// FlushDataOnly skips the file sync. The caller syncs later, typically
	// after batching several flushes.
	FlushDataOnly

	// FlushFull calls fdatasync, using F_FULLFSYNC on macOS so the data
	// reaches the physical disk and not just the drive cache.
	FlushFull
)

func (m FlushMode) String() string {
	switch m {
	case FlushAuto:
		return "auto"
	case FlushDataOnly:
		return "data-only"
	case FlushFull:
		return "full"
	default:
		return "unknown"
	}
}

// Range is a dirty byte range, as offsets from the start of the mapping.
type Range struct {
	Off int64
	Len int64
}

// End returns the offset just past the range.
func (r Range) End() int64 { return r.Off + r.Len }

// Tracker accumulates dirty ranges and flushes them page by page.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	m        Mapping
	ranges   []Range // raw ranges, coalesced at flush time
	pageSize int64
}

// NewTracker creates a dirty tracker for m using the OS page size.
func NewTracker(m Mapping) *Tracker {
	return NewTrackerPageSize(m, os.Getpagesize())
}

// NewTrackerPageSize creates a dirty tracker that aligns ranges to pageSize.
// pageSize must be a multiple of the OS page size for Flush to succeed.
func NewTrackerPageSize(m Mapping, pageSize int) *Tracker {
	if pageSize <= 0 {
		pageSize = os.Getpagesize()
	}
	return &Tracker{
		m:        m,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: int64(pageSize),
	}
}

// Add records a dirty range. Empty and negative ranges are ignored.
//
// Alignment and merging are deferred to flush time, so Add only appends.
func (t *Tracker) Add(off, length int) {
	if length <= 0 || off < 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Len returns the number of raw ranges recorded since the last flush or reset.
func (t *Tracker) Len() int { return len(t.ranges) }

// Flush msyncs every dirty page and clears the recorded ranges.
//
// The context is checked before each range. If it is cancelled part way, the
// ranges already written stay written and every range is kept for the next
// Flush.
func (t *Tracker) Flush(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Bytes()
	if len(data) == 0 {
		t.ranges = t.ranges[:0]
		return nil
	}

	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}

	t.ranges = t.ranges[:0]
	return nil
}

// Sync makes flushed pages durable on disk according to mode.
func (t *Tracker) Sync(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mode == FlushDataOnly {
		return nil
	}
	return fdatasync(t.m.FD(), mode == FlushFull)
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Ranges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) Ranges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// Coalesced returns the page-aligned, sorted and merged ranges that the next
// Flush will write.
func (t *Tracker) Coalesced() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ranges into a new slice.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.End()
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.End() {
			current.Len = max(current.End(), next.End()) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// clamp restricts r to a mapping of n bytes. ok is false if nothing remains.
func clamp(r Range, n int) (start, end int, ok bool) {
	start = int(r.Off)
	end = int(min(r.End(), int64(n)))
	return start, end, start < end
}
