package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mos-project/mos-core/mm/frame"
)

const referenceTrace = `# reference scenario plus two bad frees
alloc 4096
alloc 4K

free #1
free 0x1000
free 0x1000
alloc 2M
free #3
`

func TestParseTrace(t *testing.T) {
	ops, err := parseTrace(strings.NewReader(referenceTrace))
	require.NoError(t, err)
	require.Len(t, ops, 7)

	assert.Equal(t, traceOp{Line: 2, Kind: opAlloc, Arg: "4096", Size: 4096}, ops[0])
	assert.Equal(t, traceOp{Line: 5, Kind: opFree, Arg: "#1", Ref: 1}, ops[2])
	assert.Equal(t, traceOp{Line: 6, Kind: opFree, Arg: "0x1000", Addr: 0x1000}, ops[3])
	assert.Equal(t, uint64(2<<20), ops[5].Size)
}

func TestParseTrace_Errors(t *testing.T) {
	tests := []struct {
		name  string
		trace string
		want  string
	}{
		{"unknown op", "alloc 4K\nmap 4K\n", "line 2: unknown op"},
		{"missing arg", "alloc\n", "line 1: expected"},
		{"extra arg", "free 0x1000 now\n", "line 1: expected"},
		{"bad size", "alloc lots\n", "line 1: invalid size"},
		{"bad address", "free 4K\n", "line 1: invalid address"},
		{"bad reference", "free #0\n", "line 1: invalid allocation reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTrace(strings.NewReader(tt.trace))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReplayTrace(t *testing.T) {
	ops, err := parseTrace(strings.NewReader(referenceTrace))
	require.NoError(t, err)

	fa, err := frame.Init(0, 1<<20, nil)
	require.NoError(t, err)

	results, err := replayTrace(fa, ops, true)
	require.NoError(t, err)
	require.Len(t, results, 7)

	assert.Equal(t, stepResult{Line: 2, Op: "alloc", Arg: "4096", Addr: "0x0", Size: 4096}, results[0])
	assert.Equal(t, stepResult{Line: 3, Op: "alloc", Arg: "4K", Addr: "0x1000", Size: 4096}, results[1])
	assert.Equal(t, stepResult{Line: 5, Op: "free", Arg: "#1", Addr: "0x0", Size: 4096}, results[2])
	assert.True(t, results[3].ok())

	assert.False(t, results[4].ok())
	assert.Contains(t, results[4].Error, "not allocated")

	assert.False(t, results[5].ok())
	assert.Contains(t, results[5].Error, "out of memory")

	assert.Equal(t, "allocation #3 did not succeed", results[6].Error)

	assert.Equal(t, 0, fa.Outstanding())
	assert.Len(t, fa.Blocks(), 1)
}

func TestIsInvariantError(t *testing.T) {
	assert.True(t, isInvariantError(&frame.InvariantError{Reason: "x"}))
	assert.False(t, isInvariantError(frame.ErrOutOfMemory))
}
