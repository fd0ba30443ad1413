// Package dirty tracks which pages of a mapped RAM image have been handed out
// or written, and flushes exactly those pages back to the image file.
//
// # Overview
//
// Frames handed out from a file-backed region live in a shared mapping. The
// tracker records the byte ranges touched through the frame API and, at
// flush time, msyncs only the pages covering them.
//
// # Usage
//
//	tracker := dirty.NewTracker(mapping)
//
//	// After handing out a 16 KB frame at offset 0x5000
//	tracker.Add(0x5000, 0x4000)
//
//	if err := tracker.Flush(ctx); err != nil {
//	    return err
//	}
//	if err := tracker.Sync(ctx, dirty.FlushAuto); err != nil {
//	    return err
//	}
//
// # Page-Level Granularity
//
// Ranges are widened to OS page boundaries before flushing:
//   - A 1-byte write marks the whole page dirty
//   - msync requires page-aligned addresses
//
// # Range Coalescing
//
// Aligned ranges are sorted and merged when they overlap or touch:
//
//	Dirty pages: [0, 1, 2, 5, 6] → Ranges: [0x0-0x3000, 0x5000-0x7000]
//
// # Thread Safety
//
// Tracker instances are not thread-safe. Callers must synchronize access
// externally.
package dirty
