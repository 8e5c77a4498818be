package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dealsync/internal/config"
	"github.com/backmassage/dealsync/internal/lock"
	"github.com/backmassage/dealsync/internal/logging"
	"github.com/backmassage/dealsync/internal/upload"
)

var fixedNow = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

type memStore struct {
	objects map[string]string
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = string(b)
	return nil
}

func (s *memStore) BucketExists(context.Context) (bool, error) { return true, nil }
func (s *memStore) Name() string                               { return "mem://deals" }

type harness struct {
	app   *app
	dir   string
	store *memStore
	out   *bytes.Buffer
	logs  *bytes.Buffer
	env   map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		dir:   t.TempDir(),
		store: &memStore{objects: map[string]string{}},
		out:   &bytes.Buffer{},
		logs:  &bytes.Buffer{},
		env: map[string]string{
			"S3_ENDPOINT":   "localhost:9000",
			"S3_BUCKET":     "deals",
			"S3_PREFIX":     "exports",
			"S3_ACCESS_KEY": "key",
			"S3_SECRET_KEY": "secret",
		},
	}
	h.env["DEALSYNC_DATA_DIR"] = h.dir
	h.app = &app{
		getenv: func(k string) string { return h.env[k] },
		now:    func() time.Time { return fixedNow },
		newStore: func(context.Context, config.StorageConfig) (upload.Store, error) {
			return h.store, nil
		},
		newLogger: func(*config.Config) (logging.Logger, error) {
			return logging.NewWriterLogger(h.logs, zerolog.DebugLevel), nil
		},
		out: h.out,
	}
	return h
}

func (h *harness) run(args ...string) int {
	return execute(context.Background(), h.app, append([]string{"--env-file", ""}, args...))
}

// outcomes counts the per-file outcome lines in the JSON log.
func (h *harness) outcomes(t *testing.T) map[string]int {
	t.Helper()
	counts := map[string]int{}
	for _, raw := range strings.Split(strings.TrimSpace(h.logs.String()), "\n") {
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line), raw)
		if o, ok := line["outcome"].(string); ok {
			counts[o]++
		}
	}
	return counts
}

func (h *harness) touch(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(p, []byte("symbol,qty\n"), 0o644))
	mt := fixedNow.Add(-time.Minute)
	require.NoError(t, os.Chtimes(p, mt, mt))
	return p
}

func TestRun_RenamesAndUploads(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "bulk.csv")
	h.touch(t, "Bulk_BSE_25Jun2025.csv")
	metricsFile := filepath.Join(t.TempDir(), "dealsync.prom")

	code := h.run("run", "--metrics-file", metricsFile)
	require.Equal(t, 0, code, h.logs.String())

	assert.FileExists(t, filepath.Join(h.dir, "bulk_NSE_14102026.csv"))
	assert.FileExists(t, filepath.Join(h.dir, "bulk_BSE_25062025.csv"))
	assert.Contains(t, h.store.objects, "exports/bulk_NSE_14102026.csv")
	assert.Contains(t, h.store.objects, "exports/bulk_BSE_25062025.csv")
	assert.NoFileExists(t, filepath.Join(h.dir, lock.FileName), "lock is released")

	b, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `dealsync_uploads_total{status="uploaded"} 2`)
	assert.Contains(t, h.logs.String(), `"run_id"`)
	assert.Equal(t, map[string]int{"renamed": 2, "uploaded": 2}, h.outcomes(t))
}

func TestRun_DefaultCommand(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "block.csv")

	require.Equal(t, 0, h.run(), h.logs.String())
	assert.Contains(t, h.store.objects, "exports/block_NSE_14102026.csv")
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "bulk.csv")

	require.Equal(t, 0, h.run("run", "--dry-run"))
	assert.FileExists(t, filepath.Join(h.dir, "bulk.csv"))
	assert.Empty(t, h.store.objects)
}

func TestRun_ConnectionFailureKeepsRenames(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "bulk.csv")
	h.app.newStore = func(context.Context, config.StorageConfig) (upload.Store, error) {
		return nil, upload.ErrConnection
	}

	assert.Equal(t, 1, h.run("run"))
	assert.FileExists(t, filepath.Join(h.dir, "bulk_NSE_14102026.csv"))
}

func TestRun_MissingBucketIsConnectionFailure(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "bulk.csv")
	delete(h.env, "S3_BUCKET")

	assert.Equal(t, 1, h.run("run"))
	assert.FileExists(t, filepath.Join(h.dir, "bulk_NSE_14102026.csv"))
}

func TestRun_LockedDirectory(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "bulk.csv")
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, lock.FileName), []byte("1 other\n"), 0o644))

	assert.Equal(t, 1, h.run("run"))
	assert.FileExists(t, filepath.Join(h.dir, "bulk.csv"), "locked runs rename nothing")
}

func TestRename_PrintsNewPaths(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "PIT_BSE_250625.csv")

	require.Equal(t, 0, h.run("rename"))
	assert.Equal(t, filepath.Join(h.dir, "Insider_BSE_25062025.csv"), strings.TrimSpace(h.out.String()))
	assert.Empty(t, h.store.objects)
}

func TestUpload_DefaultsToCanonicalFiles(t *testing.T) {
	h := newHarness(t)
	h.touch(t, "bulk_BSE_25062025.csv")
	h.touch(t, "bulk.csv")

	require.Equal(t, 0, h.run("upload"))
	assert.Equal(t, map[string]string{"exports/bulk_BSE_25062025.csv": "symbol,qty\n"}, h.store.objects)
}

func TestUpload_RejectsExplicitNonCanonical(t *testing.T) {
	h := newHarness(t)
	p := h.touch(t, "bulk.csv")

	assert.Equal(t, 1, h.run("upload", p))
	assert.Empty(t, h.store.objects)
}

func TestCheck(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 0, h.run("check"))

	h = newHarness(t)
	h.env["DEALSYNC_DATA_DIR"] = filepath.Join(h.dir, "missing")
	assert.Equal(t, 1, h.run("check"))
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 1, h.run("run", "--window", "0"))
}
