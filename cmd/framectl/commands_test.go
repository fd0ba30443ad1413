package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario(t *testing.T) {
	resetFlags(t)

	out, err := captureOutput(t, runScenario)
	require.NoError(t, err)
	assertContains(t, out, []string{
		"allocate(4096)",
		"want 0x0",
		"want 0x1000",
		"free(0x1000)",
		"coalesced to initial map",
		"scenario passed (8 steps)",
	})
	assert.NotContains(t, out, "FAIL")
}

func TestScenario_VerboseTracesSplits(t *testing.T) {
	resetFlags(t)
	verbose = true

	out, err := captureOutput(t, runScenario)
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(out, "split"))
	assert.Equal(t, 8, strings.Count(out, "merge"))
}

func TestScenario_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true

	out, err := captureOutput(t, runScenario)
	require.NoError(t, err)

	var res struct {
		Steps  []scenarioStep `json:"steps"`
		Failed int            `json:"failed"`
	}
	assertJSON(t, out, &res)
	assert.Zero(t, res.Failed)
	require.Len(t, res.Steps, 8)
	assert.Equal(t, scenarioStep{Step: "allocate(4096)", Want: "0x1000", Got: "0x1000", Passed: true}, res.Steps[1])
}

func TestReplay(t *testing.T) {
	resetFlags(t)
	path := writeFile(t, "ref.trace", referenceTrace)

	out, err := captureOutput(t, func() error {
		return runReplay(path, geometry{Size: 1 << 20, PageSize: 4096, Check: true})
	})
	require.NoError(t, err)
	assertContains(t, out, []string{
		"0x1000",
		"block is not allocated",
		"7 operations, 3 failed, 0 allocations outstanding",
	})
}

func TestReplay_Strict(t *testing.T) {
	resetFlags(t)
	quiet = true
	replayStrict = true
	path := writeFile(t, "ref.trace", referenceTrace)

	_, err := captureOutput(t, func() error {
		return runReplay(path, geometry{Size: 1 << 20, PageSize: 4096})
	})
	require.ErrorContains(t, err, "3 of 7 operations failed")
}

func TestReplay_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	path := writeFile(t, "leak.trace", "alloc 12K\nalloc 4K\n")

	out, err := captureOutput(t, func() error {
		return runReplay(path, geometry{Size: 64 << 10, PageSize: 4096})
	})
	require.NoError(t, err)

	var res struct {
		Steps       []stepResult `json:"steps"`
		Failed      int          `json:"failed"`
		Outstanding int          `json:"outstanding"`
	}
	assertJSON(t, out, &res)
	assert.Equal(t, 2, res.Outstanding)
	assert.Equal(t, "0x4000", res.Steps[1].Addr)
	assert.Equal(t, uint64(16<<10), res.Steps[0].Size)
}

func TestReplay_Errors(t *testing.T) {
	resetFlags(t)

	err := runReplay("/nonexistent.trace", geometry{Size: 1 << 20, PageSize: 4096})
	require.Error(t, err)

	path := writeFile(t, "bad.trace", "alloc x\n")
	err = runReplay(path, geometry{Size: 1 << 20, PageSize: 4096})
	require.ErrorContains(t, err, "line 1")

	path = writeFile(t, "ok.trace", "alloc 4K\n")
	err = runReplay(path, geometry{Size: 1 << 20, PageSize: 3000})
	require.Error(t, err)
}

func TestDump_Text(t *testing.T) {
	resetFlags(t)

	fa, err := newAllocator(geometry{Size: 48 << 10, PageSize: 4096})
	require.NoError(t, err)
	_, err = fa.Allocate(4096)
	require.NoError(t, err)

	out, err := captureOutput(t, func() error { return printDump(fa) })
	require.NoError(t, err)
	assertContains(t, out, []string{
		"Block map",
		"0x0", "0x8000", "0x9000", "0xa000", "0xc000",
		"used", "free",
		"Free lists",
		"used 4,096 bytes in 1 blocks, free 45,056 bytes",
	})
}

func TestDump_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true

	fa, err := newAllocator(geometry{Size: 48 << 10, PageSize: 4096})
	require.NoError(t, err)

	out, err := captureOutput(t, func() error { return printDump(fa) })
	require.NoError(t, err)

	var res struct {
		Blocks    []blockJSON    `json:"blocks"`
		FreeLists []freeListJSON `json:"free_lists"`
	}
	assertJSON(t, out, &res)
	assert.Equal(t, []blockJSON{
		{Addr: "0x0", Size: 32 << 10, Level: 3, Free: true},
		{Addr: "0x8000", Size: 16 << 10, Level: 2, Free: true},
	}, res.Blocks)
	assert.Equal(t, []freeListJSON{
		{Level: 2, Size: 16 << 10, Addrs: []string{"0x8000"}},
		{Level: 3, Size: 32 << 10, Addrs: []string{"0x0"}},
	}, res.FreeLists)
}

func TestStress(t *testing.T) {
	resetFlags(t)

	report, err := runStress(stressOptions{
		geometry: geometry{Size: 1 << 20, PageSize: 4096, Check: true},
		Ops:      2000,
		Seed:     42,
		MaxAlloc: 64 << 10,
	})
	require.NoError(t, err)
	assert.Equal(t, report.Allocs, report.Frees)
	assert.Equal(t, 0, report.Stats.Outstanding)
	assert.Positive(t, report.PeakOutstanding)
	assert.Equal(t, report.Stats.Splits, report.Stats.Merges)

	again, err := runStress(stressOptions{
		geometry: geometry{Size: 1 << 20, PageSize: 4096},
		Ops:      2000,
		Seed:     42,
		MaxAlloc: 64 << 10,
	})
	require.NoError(t, err)
	assert.Equal(t, report.Allocs, again.Allocs, "same seed, same run")
	assert.Equal(t, report.OutOfMemory, again.OutOfMemory)
}

func TestStress_Image(t *testing.T) {
	resetFlags(t)

	image := writeFile(t, "ram.img", "")
	report, err := runStress(stressOptions{
		geometry: geometry{Size: 256 << 10, PageSize: 4096},
		Ops:      500,
		Seed:     7,
		MaxAlloc: 32 << 10,
		Image:    image,
	})
	require.NoError(t, err)
	assert.Positive(t, report.Allocs)
}

func TestStress_InvalidOptions(t *testing.T) {
	resetFlags(t)

	_, err := runStress(stressOptions{geometry: geometry{Size: 1 << 20}, Ops: -1, MaxAlloc: 1})
	require.Error(t, err)
	_, err = runStress(stressOptions{geometry: geometry{Size: 1 << 20}, Ops: 1})
	require.Error(t, err)
	_, err = runStress(stressOptions{geometry: geometry{Size: 0}, Ops: 1, MaxAlloc: 1})
	require.Error(t, err)
}

func TestStressReport_Text(t *testing.T) {
	resetFlags(t)

	out, err := captureOutput(t, func() error {
		return printStressReport(stressReport{Seed: 3, Ops: 12345, Allocs: 6000, Frees: 6000})
	})
	require.NoError(t, err)
	assertContains(t, out, []string{"seed:             3", "operations:       12,345", "ok"})
}
