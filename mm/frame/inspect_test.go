package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocks_AfterSplit(t *testing.T) {
	fa := newTestAllocator(t, 0x400000, 64*kib)

	addr, err := fa.Allocate(12 * kib)
	require.NoError(t, err)
	require.Equal(t, Addr(0x400000), addr)

	assert.Equal(t, []Block{
		{Addr: 0x400000, Size: 16 * kib, Level: 2, Free: false},
		{Addr: 0x404000, Size: 16 * kib, Level: 2, Free: true},
		{Addr: 0x408000, Size: 32 * kib, Level: 3, Free: true},
	}, fa.Blocks())

	assert.Equal(t, []Addr{0x404000}, fa.FreeBlocks(2))
	assert.Equal(t, []Addr{0x408000}, fa.FreeBlocks(3))
	assert.Empty(t, fa.FreeBlocks(0))
	assert.Nil(t, fa.FreeBlocks(-1))
	assert.Nil(t, fa.FreeBlocks(fa.MaxLevel()+1))
}

func TestStats(t *testing.T) {
	fa := newTestAllocator(t, 0, 64*kib)

	a, err := fa.Allocate(4096)
	require.NoError(t, err)
	_, err = fa.Allocate(0)
	require.Error(t, err)
	require.Error(t, fa.Free(a+0x1000))

	st := fa.Stats()
	assert.Equal(t, 2, st.AllocCalls)
	assert.Equal(t, 1, st.FailedAllocs)
	assert.Equal(t, 1, st.FreeCalls)
	assert.Equal(t, 1, st.FailedFrees)
	assert.Equal(t, 4, st.Splits)
	assert.Equal(t, 0, st.Merges)
	assert.Equal(t, 1, st.Outstanding)
	assert.Equal(t, uint64(4*kib), st.UsedBytes)
	assert.Equal(t, uint64(60*kib), st.FreeBytes)
	assert.Equal(t, []int{1, 1, 1, 1}, st.FreeBlocks[:4])

	require.NoError(t, fa.Free(a))
	st = fa.Stats()
	assert.Equal(t, 4, st.Merges)
	assert.Equal(t, 1, st.FreeBlocks[4])
}

func TestCheck_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(fa *BuddyAllocator)
		reason  string
	}{
		{
			name:    "counter drift",
			corrupt: func(fa *BuddyAllocator) { fa.allocated++ },
			reason:  "outstanding counter",
		},
		{
			name:    "used bytes drift",
			corrupt: func(fa *BuddyAllocator) { fa.usedBytes += 4096 },
			reason:  "used bytes counter",
		},
		{
			name:    "gap",
			corrupt: func(fa *BuddyAllocator) { fa.blocks[8] = block{next: nilIndex} },
			reason:  "gap at 0x8000",
		},
		{
			name:    "misaligned block",
			corrupt: func(fa *BuddyAllocator) { fa.blocks[1].pages = 2 },
			reason:  "misaligned",
		},
		{
			name:    "non power of two",
			corrupt: func(fa *BuddyAllocator) { fa.blocks[8].pages = 3 },
			reason:  "not a power of two",
		},
		{
			name: "stale interior descriptor",
			corrupt: func(fa *BuddyAllocator) {
				fa.blocks[9] = block{pages: 1, free: true, next: nilIndex}
			},
			reason: "overlaps",
		},
		{
			name:    "free block off its list",
			corrupt: func(fa *BuddyAllocator) { fa.unlink(3, 8) },
			reason:  "enlisted",
		},
		{
			name:    "used block on a list",
			corrupt: func(fa *BuddyAllocator) { fa.push(0, 0) },
			reason:  "not a free block",
		},
		{
			name:    "block on the wrong list",
			corrupt: func(fa *BuddyAllocator) { fa.unlink(3, 8); fa.push(2, 8) },
			reason:  "level 2 list holds level 3 block",
		},
		{
			name:    "list cycle",
			corrupt: func(fa *BuddyAllocator) { fa.blocks[8].next = 8 },
			reason:  "enlisted twice",
		},
		{
			name:    "list points outside table",
			corrupt: func(fa *BuddyAllocator) { fa.blocks[8].next = 99 },
			reason:  "outside the table",
		},
		{
			name: "unmerged buddies",
			corrupt: func(fa *BuddyAllocator) {
				fa.blocks[0].free = true
				fa.allocated--
				fa.usedBytes -= 4096
				fa.push(0, 0)
			},
			reason: "free buddies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := newTestAllocator(t, 0, 64*kib)
			addr, err := fa.Allocate(4096)
			require.NoError(t, err)
			require.Equal(t, Addr(0), addr)

			tt.corrupt(fa)

			var ie *InvariantError
			require.ErrorAs(t, fa.Check(), &ie)
			assert.Contains(t, ie.Reason, tt.reason)
		})
	}
}

func TestPrintStats(t *testing.T) {
	fa := newTestAllocator(t, 0x100000, 2*mib)
	_, err := fa.Allocate(12 * kib)
	require.NoError(t, err)

	var buf bytes.Buffer
	fa.PrintStats(&buf)
	out := buf.String()

	assert.Contains(t, out, "Region:        0x100000 - 0x300000")
	assert.Contains(t, out, "2,097,152 bytes (512 pages of 4,096)")
	assert.Contains(t, out, "Used:          16,384 bytes in 1 blocks")
	assert.Contains(t, out, "Splits/Merges: 7 / 0")
	assert.Regexp(t, `L2\s+16,384 bytes\s+x1`, out)
	assert.NotContains(t, out, "L9 ")
}
