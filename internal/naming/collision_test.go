package naming

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollisionGuard_FreeTarget(t *testing.T) {
	dir := t.TempDir()
	g := NewCollisionGuard(os.Stat)

	ok, err := g.Claim(filepath.Join(dir, "bulk.csv"), filepath.Join(dir, "bulk_NSE_14102026.csv"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCollisionGuard_ExistingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "bulk_NSE_14102026.csv")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	g := NewCollisionGuard(os.Stat)
	ok, err := g.Claim(filepath.Join(dir, "bulk.csv"), target)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollisionGuard_ClaimedInRun(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "bulk_NSE_14102026.csv")
	g := NewCollisionGuard(os.Stat)

	ok, err := g.Claim(filepath.Join(dir, "bulk.csv"), target)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Claim(filepath.Join(dir, "BULK.csv"), target)
	require.NoError(t, err)
	assert.False(t, ok, "second source must not take a claimed target")

	ok, err = g.Claim(filepath.Join(dir, "bulk.csv"), target)
	require.NoError(t, err)
	assert.True(t, ok, "re-claim by the owner is allowed")
}

func TestCollisionGuard_StatError(t *testing.T) {
	boom := errors.New("permission denied")
	g := NewCollisionGuard(func(string) (fs.FileInfo, error) { return nil, boom })

	ok, err := g.Claim("a.csv", "b.csv")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestCollisionGuard_CaseOnlyRename(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "bulk_bse_25062025.csv")
	require.NoError(t, os.WriteFile(source, []byte("symbol,qty\n"), 0o644))
	other := filepath.Join(dir, "block_nse_25062025.csv")
	require.NoError(t, os.WriteFile(other, []byte("symbol,qty\n"), 0o644))

	// Case-insensitive lookups: every name resolves to its lowercase file.
	foldStat := func(name string) (fs.FileInfo, error) {
		return os.Stat(filepath.Join(filepath.Dir(name), strings.ToLower(filepath.Base(name))))
	}
	g := NewCollisionGuard(foldStat)

	ok, err := g.Claim(filepath.Join(dir, "Bulk_BSE_25062025.csv"), filepath.Join(dir, "bulk_BSE_25062025.csv"))
	require.NoError(t, err)
	assert.True(t, ok, "target that is the source itself is free")

	ok, err = g.Claim(filepath.Join(dir, "BLOCK_NSE_25062025.csv"), filepath.Join(dir, "BULK_bse_25062025.csv"))
	require.NoError(t, err)
	assert.False(t, ok, "a different file at the target is still a collision")
}
