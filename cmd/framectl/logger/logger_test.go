package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledDiscards(t *testing.T) {
	require.NoError(t, Init(Options{}))
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestInit_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir, Level: slog.LevelDebug}))
	t.Cleanup(Close)

	Debug("frame split", "addr", "0x1000")
	Warn("frame allocations unfreed", "outstanding", 2)
	Close()

	data, err := os.ReadFile(logFileName(dir, time.Now()))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "frame allocations unfreed", rec["msg"])
	assert.EqualValues(t, 2, rec["outstanding"])
}

func TestInit_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir, Level: slog.LevelInfo}))
	Debug("dropped")
	Info("kept")
	Close()

	data, err := os.ReadFile(logFileName(dir, time.Now()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	old := logFileName(dir, now.AddDate(0, 0, -45))
	recent := logFileName(dir, now.AddDate(0, 0, -3))
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, recent, other} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	cleanOldLogs(dir, now)

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, other)
}
