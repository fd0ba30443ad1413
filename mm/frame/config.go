package frame

import (
	"fmt"

	"github.com/mos-project/mos-core/internal/bits"
)

const (
	// DefaultPageSize is the allocation granularity (4KB frames).
	DefaultPageSize = 4096

	// DefaultMaxPages sizes the block table for a 1GB range of 4KB pages,
	// which gives 19 levels (0..18).
	DefaultMaxPages = 1 << 18

	// maxTablePages keeps table indices inside int32.
	maxTablePages = 1 << 30
)

// Config defines the geometry of a frame allocator.
type Config struct {
	// PageSize is the minimum block size in bytes. Must be a power of two.
	// Default: DefaultPageSize
	PageSize uint64

	// MaxPages is the block table capacity: the largest region, in pages,
	// the allocator will ever manage. It also fixes the highest level.
	// Default: DefaultMaxPages
	MaxPages uint64

	// Observer receives every state transition (split, merge, alloc, free).
	// Default: nil (or a stderr logger when MOS_LOG_FRAMES is set)
	Observer Observer
}

// DefaultConfig is used when Init is given a nil config.
var DefaultConfig = Config{
	PageSize: DefaultPageSize,
	MaxPages: DefaultMaxPages,
}

// withDefaults fills zero fields from DefaultConfig and validates the result.
func (c Config) withDefaults() (Config, error) {
	if c.PageSize == 0 {
		c.PageSize = DefaultConfig.PageSize
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultConfig.MaxPages
	}
	if !bits.IsPow2(c.PageSize) {
		return c, fmt.Errorf("%w: page size %d is not a power of two", ErrInvalidArgument, c.PageSize)
	}
	if c.MaxPages > maxTablePages {
		return c, fmt.Errorf("%w: max pages %d exceeds %d", ErrInvalidArgument, c.MaxPages, maxTablePages)
	}
	return c, nil
}

// MaxLevel returns the highest block level this configuration supports.
func (c Config) MaxLevel() Level {
	cfg, err := c.withDefaults()
	if err != nil {
		return 0
	}
	return Level(bits.Log2(cfg.MaxPages))
}
