package naming

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// CollisionGuard decides whether a rename target is free. A target is taken
// when a file already exists at that path, or when another source claimed it
// earlier in the same run (which matters for dry runs, where nothing is
// renamed on disk). Taken targets are skipped, never overwritten. A target
// that resolves to the source itself, as with a case-only rename on a
// case-insensitive filesystem, is free.
//
// The on-disk check and the rename that follows are not atomic; callers must
// serialize runs against a directory.
type CollisionGuard struct {
	mu     sync.Mutex
	stat   func(name string) (fs.FileInfo, error)
	owners map[string]string // target path → source path that claimed it
}

// NewCollisionGuard creates a guard that probes the filesystem with stat.
func NewCollisionGuard(stat func(name string) (fs.FileInfo, error)) *CollisionGuard {
	return &CollisionGuard{
		stat:   stat,
		owners: make(map[string]string),
	}
}

// Claim reports whether source may be renamed to target and, if so, records
// the claim. Stat failures other than "does not exist" are returned so the
// caller can report them instead of guessing.
func (g *CollisionGuard) Claim(source, target string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if owner, ok := g.owners[target]; ok && owner != source {
		return false, nil
	}

	tfi, err := g.stat(target)
	switch {
	case err == nil:
		if !g.isSource(source, tfi) {
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	g.owners[target] = source
	return true, nil
}

func (g *CollisionGuard) isSource(source string, target fs.FileInfo) bool {
	sfi, err := g.stat(source)
	return err == nil && os.SameFile(sfi, target)
}
