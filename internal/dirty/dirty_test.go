package dirty

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memMapping is a heap-backed Mapping for tests that never reach the kernel.
type memMapping struct {
	data []byte
}

func (m *memMapping) Bytes() []byte { return m.data }
func (m *memMapping) FD() int       { return -1 }

func newTestTracker(size int) *Tracker {
	return NewTrackerPageSize(&memMapping{data: make([]byte, size)}, 4096)
}

func TestTracker_PageAlignment(t *testing.T) {
	tracker := newTestTracker(64 << 10)
	tracker.Add(100, 200)

	assert.Equal(t, []Range{{Off: 0, Len: 4096}}, tracker.Coalesced())
}

func TestTracker_Coalesce(t *testing.T) {
	tests := []struct {
		name  string
		added []Range
		want  []Range
	}{
		{
			name:  "adjacent",
			added: []Range{{4096, 4096}, {8192, 4096}},
			want:  []Range{{4096, 8192}},
		},
		{
			name:  "overlapping",
			added: []Range{{0, 8192}, {4096, 8192}},
			want:  []Range{{0, 12288}},
		},
		{
			name:  "separate",
			added: []Range{{0, 4096}, {20480, 4096}},
			want:  []Range{{0, 4096}, {20480, 4096}},
		},
		{
			name:  "unsorted input",
			added: []Range{{0x6000, 10}, {0x1000, 0x2000}, {0x5000, 1}, {0x2fff, 1}},
			want:  []Range{{0x1000, 0x2000}, {0x5000, 0x2000}},
		},
		{
			name:  "contained",
			added: []Range{{0, 0x4000}, {0x1000, 10}},
			want:  []Range{{0, 0x4000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(64 << 10)
			for _, r := range tt.added {
				tracker.Add(int(r.Off), int(r.Len))
			}
			assert.Equal(t, tt.want, tracker.Coalesced())
			assert.Equal(t, tt.added, tracker.Ranges(), "raw ranges are kept until flush")
		})
	}
}

func TestTracker_CoalesceManyRanges(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	for i := range 100 {
		tracker.Add(i*8192, 4096)
	}

	coalesced := tracker.Coalesced()
	require.Len(t, coalesced, 100)
	for i := 1; i < len(coalesced); i++ {
		assert.Greater(t, coalesced[i].Off, coalesced[i-1].End())
	}
}

func TestTracker_AddIgnoresEmpty(t *testing.T) {
	tracker := newTestTracker(64 << 10)
	tracker.Add(4096, 0)
	tracker.Add(-1, 10)
	assert.Equal(t, 0, tracker.Len())
	assert.Nil(t, tracker.Coalesced())
}

func TestTracker_Reset(t *testing.T) {
	tracker := newTestTracker(64 << 10)
	tracker.Add(0, 100)
	tracker.Add(4096, 200)
	tracker.Add(8192, 300)
	require.Equal(t, 3, tracker.Len())

	tracker.Reset()
	assert.Equal(t, 0, tracker.Len())
}

func TestTracker_FlushEmptyMapping(t *testing.T) {
	tracker := NewTrackerPageSize(&memMapping{}, 4096)
	tracker.Add(0, 4096)

	require.NoError(t, tracker.Flush(context.Background()))
	assert.Equal(t, 0, tracker.Len())
}

func TestClamp(t *testing.T) {
	start, end, ok := clamp(Range{Off: 4096, Len: 8192}, 8192)
	require.True(t, ok)
	assert.Equal(t, 4096, start)
	assert.Equal(t, 8192, end)

	_, _, ok = clamp(Range{Off: 8192, Len: 4096}, 8192)
	assert.False(t, ok)
}

func TestFlushModeString(t *testing.T) {
	assert.Equal(t, "auto", FlushAuto.String())
	assert.Equal(t, "data-only", FlushDataOnly.String())
	assert.Equal(t, "full", FlushFull.String())
}

func Benchmark_Tracker_Add(b *testing.B) {
	tracker := newTestTracker(64 << 10)
	for i := 0; i < b.N; i++ {
		tracker.Add(4096, 100)
		if tracker.Len() >= defaultRangeCapacity {
			tracker.Reset()
		}
	}
}

func Benchmark_Tracker_Coalesce_100Ranges(b *testing.B) {
	tracker := newTestTracker(1 << 20)
	for i := range 100 {
		tracker.Add(i*4096*2, 4096)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tracker.coalesce()
	}
}
