// Package bits holds the power-of-two helpers the frame allocator uses to
// turn block sizes into levels.
package bits

import mathbits "math/bits"

// Log2 returns the index of the highest set bit of x, i.e. floor(log2(x)).
// Log2(0) returns -1.
//
// Example:
//
//	Log2(1)    = 0
//	Log2(2)    = 1
//	Log2(3)    = 1
//	Log2(4096) = 12
func Log2(x uint64) int {
	return mathbits.Len64(x) - 1
}

// IsPow2 reports whether x is a non-zero power of two.
func IsPow2(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// NextPow2 rounds x up to the next power of two. NextPow2(0) is 1.
// Values above 1<<63 wrap to 0.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	return 1 << mathbits.Len64(x-1)
}

// AlignUp rounds n up to a multiple of align. align must be a power of two.
//
// Example:
//
//	AlignUp(1, 4096)    = 4096
//	AlignUp(4096, 4096) = 4096
//	AlignUp(4097, 4096) = 8192
func AlignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// AlignDown rounds n down to a multiple of align. align must be a power of two.
func AlignDown(n, align uint64) uint64 {
	return n &^ (align - 1)
}
