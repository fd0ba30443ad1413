package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sizeSuffixes are matched case-insensitively, longest first.
var sizeSuffixes = []struct {
	suffix string
	shift  uint
}{
	{"KIB", 10}, {"MIB", 20}, {"GIB", 30},
	{"KB", 10}, {"MB", 20}, {"GB", 30},
	{"K", 10}, {"M", 20}, {"G", 30},
}

// parseSize parses a byte count: decimal ("4096"), hex ("0x1000"), or a
// number with a binary unit ("4K", "1MiB", "2gb").
func parseSize(s string) (uint64, error) {
	num := strings.TrimSpace(s)
	if num == "" {
		return 0, fmt.Errorf("empty size")
	}

	var shift uint
	upper := strings.ToUpper(num)
	if !strings.HasPrefix(upper, "0X") {
		for _, u := range sizeSuffixes {
			if strings.HasSuffix(upper, u.suffix) {
				num = strings.TrimSpace(num[:len(num)-len(u.suffix)])
				shift = u.shift
				break
			}
		}
	}

	n, err := strconv.ParseUint(num, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > math.MaxUint64>>shift {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n << shift, nil
}

// parseAddr parses a byte address in decimal or 0x-prefixed hex.
func parseAddr(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return n, nil
}

// formatSize renders n with the largest binary unit that divides it exactly.
func formatSize(n uint64) string {
	switch {
	case n == 0:
		return "0 B"
	case n%(1<<30) == 0:
		return fmt.Sprintf("%d GiB", n>>30)
	case n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
