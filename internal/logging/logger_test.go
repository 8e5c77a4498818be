package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dealsync/internal/config"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Color = config.ColorNever
	l, err := NewLogger(&cfg)
	require.NoError(t, err)
	defer l.Close()
	l.Info("test message")
}

func TestNewLogger_WithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Log.Color = config.ColorNever
	cfg.Log.File = filepath.Join(dir, "logs", "dealsync.log")

	l, err := NewLogger(&cfg)
	require.NoError(t, err)
	l.Info("to file", F("file", "bulk.csv"))
	require.NoError(t, l.Close())

	b, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"level":"info"`)
	assert.Contains(t, string(b), `"file":"bulk.csv"`)
	assert.Contains(t, string(b), "to file")
}

func TestNewLogger_BadLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "loud"
	_, err := NewLogger(&cfg)
	assert.Error(t, err)
}

func TestWriterLogger_FieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, zerolog.InfoLevel)

	l.Debug("hidden")
	l.Success("renamed", F("from", "bulk.csv"), F("to", "bulk_NSE_14102026.csv"))
	l.Warn("skipped", F("count", 2))
	l.Error("upload failed", Err(errors.New("boom")))

	lines := decode(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, true, lines[0]["success"])
	assert.Equal(t, "bulk.csv", lines[0]["from"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, float64(2), lines[1]["count"])
	assert.Equal(t, "boom", lines[2]["error"])
}

func TestWith_AttachesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, zerolog.DebugLevel).With(F("run_id", "abc"), F("dir", "data"))
	l.Debug("start")

	lines := decode(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0]["run_id"])
	assert.Equal(t, "data", lines[0]["dir"])
	assert.NoError(t, l.Close())
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	assert.NotNil(t, l.With(F("k", "v")))
	assert.NoError(t, l.Close())
}
