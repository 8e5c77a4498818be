package check

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dealsync/internal/config"
	"github.com/backmassage/dealsync/internal/lock"
	"github.com/backmassage/dealsync/internal/logging"
	"github.com/backmassage/dealsync/internal/upload"
)

type mockLogger struct {
	successes, warns, errors []string
}

func (m *mockLogger) Info(string, ...logging.Field)        {}
func (m *mockLogger) Success(s string, _ ...logging.Field) { m.successes = append(m.successes, s) }
func (m *mockLogger) Warn(s string, _ ...logging.Field)    { m.warns = append(m.warns, s) }
func (m *mockLogger) Error(s string, _ ...logging.Field)   { m.errors = append(m.errors, s) }

type stubStore struct{}

func (stubStore) Put(context.Context, string, io.Reader, int64, string) error { return nil }
func (stubStore) BucketExists(context.Context) (bool, error)                  { return true, nil }
func (stubStore) Name() string                                                { return "stub://deals" }

func okFactory(context.Context, config.StorageConfig) (upload.Store, error) { return stubStore{}, nil }

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Storage.Endpoint = "localhost:9000"
	cfg.Storage.Bucket = "deals"
	cfg.Storage.AccessKey = "k"
	cfg.Storage.SecretKey = "s"
	return &cfg
}

func TestDataDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, DataDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	assert.ErrorIs(t, DataDir(filepath.Join(dir, "missing")), ErrDataDirMissing)

	file := filepath.Join(dir, "f.csv")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.ErrorIs(t, DataDir(file), ErrNotADirectory)
}

func TestDataDir_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	assert.ErrorIs(t, DataDir(dir), ErrDataDirNotWritable)
}

func TestRunCheck_AllPass(t *testing.T) {
	log := &mockLogger{}
	ok := RunCheck(context.Background(), testConfig(t.TempDir()), log, okFactory)
	assert.True(t, ok)
	assert.Empty(t, log.errors)
	assert.Contains(t, log.successes, "Bucket reachable")
}

func TestRunCheck_ReportsEveryFailure(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing"))
	cfg.Storage.Bucket = ""

	log := &mockLogger{}
	ok := RunCheck(context.Background(), cfg, log, okFactory)
	assert.False(t, ok)
	assert.Contains(t, log.errors, "Data directory unusable")
	assert.Contains(t, log.errors, "Storage config invalid")
}

func TestRunCheck_BucketUnreachable(t *testing.T) {
	failing := func(context.Context, config.StorageConfig) (upload.Store, error) {
		return nil, errors.Join(upload.ErrConnection, errors.New("no such host"))
	}
	log := &mockLogger{}
	assert.False(t, RunCheck(context.Background(), testConfig(t.TempDir()), log, failing))
	assert.Contains(t, log.errors, "Bucket unreachable")
}

func TestRunCheck_LockFileWarns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, lock.FileName), []byte("1 x\n"), 0o644))

	log := &mockLogger{}
	assert.True(t, RunCheck(context.Background(), testConfig(dir), log, okFactory))
	assert.Len(t, log.warns, 1)
}

func TestRunCheck_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t.TempDir())
	cfg.Lock.RedisAddr = mr.Addr()

	log := &mockLogger{}
	assert.True(t, RunCheck(context.Background(), cfg, log, okFactory))
	assert.Contains(t, log.successes, "Redis lock backend reachable")

	mr.Close()
	log = &mockLogger{}
	assert.False(t, RunCheck(context.Background(), cfg, log, okFactory))
	assert.Contains(t, log.errors, "Redis lock backend unreachable")
}
