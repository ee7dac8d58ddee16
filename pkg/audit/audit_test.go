package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	e := NewEntry("matching-svc", ActionSolve).
		Outcome(OutcomeSuccess).
		Solve("solve-1").
		Hashes("ps", "cfg").
		Result("solver", 3, false).
		Duration(1500 * time.Millisecond).
		Meta("examined", 10).
		Build()

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "matching-svc", e.Service)
	assert.Equal(t, ActionSolve, e.Action)
	assert.Equal(t, OutcomeSuccess, e.Outcome)
	assert.Equal(t, "solve-1", e.SolveID)
	assert.Equal(t, "ps", e.PatientSetHash)
	assert.Equal(t, "cfg", e.ConfigHash)
	assert.Equal(t, "solver", e.Source)
	assert.Equal(t, 3, e.Matchings)
	require.NotNil(t, e.AllResultsFound)
	assert.False(t, *e.AllResultsFound)
	assert.Equal(t, int64(1500), e.DurationMs)
	assert.Equal(t, 10, e.Metadata["examined"])
}

func TestBuilder_KeepsExplicitID(t *testing.T) {
	b := NewEntry("svc", ActionInvalidate)
	b.entry.ID = "fixed"
	assert.Equal(t, "fixed", b.Build().ID)
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	entry := NewEntry("svc", ActionSolve).
		Outcome(OutcomeFailure).
		Error("ENUMERATION_LIMIT", "too many").
		Build()
	require.NoError(t, l.Log(context.Background(), entry))
	require.NoError(t, l.Close())

	var decoded Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, "ENUMERATION_LIMIT", decoded.ErrorCode)
	assert.Nil(t, decoded.AllResultsFound)
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := NewFileLogger(&Config{Enabled: true, Backend: "file", FilePath: path, BufferSize: 4, FlushPeriod: time.Hour})
	require.NoError(t, err)

	for range 10 {
		require.NoError(t, l.Log(context.Background(), NewEntry("svc", ActionSolve).Outcome(OutcomeSuccess).Build()))
	}
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		assert.Equal(t, ActionSolve, e.Action)
		lines++
	}
	assert.Equal(t, 10, lines)
}

func TestFileLogger_BadPath(t *testing.T) {
	_, err := NewFileLogger(&Config{FilePath: filepath.Join(t.TempDir(), "missing", "dir", "audit.log")})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	l, err := New(&Config{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, NoopLogger{}, l)

	l, err = New(nil)
	require.NoError(t, err)
	assert.IsType(t, &WriterLogger{}, l)

	l, err = New(&Config{Enabled: true, Backend: "kafka"})
	require.NoError(t, err)
	assert.IsType(t, &WriterLogger{}, l)

	l, err = New(&Config{Enabled: true, Backend: "file", FilePath: filepath.Join(t.TempDir(), "a.log")})
	require.NoError(t, err)
	assert.IsType(t, &FileLogger{}, l)
	assert.NoError(t, l.Close())
}
