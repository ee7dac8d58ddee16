package logger

import (
	"bytes"
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

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitWithConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"json stdout", Config{Level: "info", Format: "json", Output: "stdout"}},
		{"text stderr", Config{Level: "debug", Format: "text", Output: "stderr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitWithConfig(tt.config)
			assert.NotNil(t, Log)
		})
	}
}

func TestInitWithConfig_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "matching.log")

	InitWithConfig(Config{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
		MaxSize:  1,
	})
	Info("solve finished", "matchings", 3)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "solve finished")
}

func TestWithSolve(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "json")

	WithSolve("solve-1").Info("enumerated paths", "cycles", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "solve-1", entry["solve_id"])
	assert.Equal(t, float64(2), entry["cycles"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "text")

	Debug("hidden")
	Info("hidden too")
	Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestInitWithConfig_ServiceAttr(t *testing.T) {
	var buf bytes.Buffer
	Log = build(&buf, "json", slog.LevelInfo, "matching-batch")

	Info("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "matching-batch", entry["service"])
	assert.True(t, strings.HasSuffix(entry["time"].(string), "Z"), "time must be UTC: %v", entry["time"])
}

func TestDestination_FileFallback(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	w, err := destination(Config{Output: "file", FilePath: filepath.Join(blocker, "sub", "x.log")})
	assert.Error(t, err)
	assert.Equal(t, os.Stdout, w)
}

func TestElapsed(t *testing.T) {
	got := Elapsed(time.Now().Add(-1500 * time.Millisecond))
	assert.True(t, strings.HasPrefix(got, "1.5"), got)
}
