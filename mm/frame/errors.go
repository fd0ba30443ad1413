package frame

import "errors"

var (
	// ErrOutOfMemory indicates that no free block at or above the required level exists.
	ErrOutOfMemory = errors.New("frame: out of memory")

	// ErrInvalidArgument indicates a zero-sized request or an unusable region/config.
	ErrInvalidArgument = errors.New("frame: invalid argument")

	// ErrInvalidPointer indicates a release below the managed region or not page aligned.
	ErrInvalidPointer = errors.New("frame: invalid pointer")

	// ErrOutOfRange indicates a release past the end of the managed region.
	ErrOutOfRange = errors.New("frame: address beyond managed region")

	// ErrDoubleFree indicates a release of a block that is not currently allocated
	// (already freed, or an address inside another block).
	ErrDoubleFree = errors.New("frame: block is not allocated")

	// ErrRegionTooLarge indicates a region with more pages than the block table holds.
	ErrRegionTooLarge = errors.New("frame: region exceeds block table capacity")
)

// InvariantError reports a structural violation found by Check.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "frame: invariant violated: " + e.Reason
}
