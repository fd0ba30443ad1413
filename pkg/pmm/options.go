package pmm

import (
	"log/slog"

	"github.com/mos-project/mos-core/mm/frame"
)

// Options controls how Open maps and manages a region.
type Options struct {
	// Size is the region size in bytes. Required.
	Size uint64

	// PageSize is the frame size. Must be a power of two.
	// Default: frame.DefaultPageSize
	PageSize uint64

	// MaxPages bounds the block table.
	// Default: the larger of frame.DefaultMaxPages and Size in pages
	MaxPages uint64

	// ImagePath maps a RAM image file instead of anonymous memory.
	// The file is created or extended to Size.
	ImagePath string

	// Zero clears every frame before Alloc returns it.
	Zero bool

	// Logger receives leak reports and, when Observer is nil, every
	// allocator event at Debug.
	// Default: discard
	Logger *slog.Logger

	// Observer receives allocator events. Overrides the Logger tracer.
	Observer frame.Observer
}
