package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileName is the lock file created inside the data directory.
const FileName = ".dealsync.lock"

// FileLock is an O_EXCL lock file. A file whose mtime is older than
// StaleAfter is treated as left behind by a crashed run and reclaimed; a live
// holder keeps the mtime fresh with [FileLock.Refresh].
type FileLock struct {
	path       string
	token      string
	staleAfter time.Duration
	now        func() time.Time
}

// NewFileLock locks dir. A zero staleAfter never reclaims; a nil now means
// time.Now.
func NewFileLock(dir string, staleAfter time.Duration, now func() time.Time) *FileLock {
	if now == nil {
		now = time.Now
	}
	return &FileLock{
		path:       filepath.Join(dir, FileName),
		token:      fmt.Sprintf("%d %s", os.Getpid(), uuid.NewString()),
		staleAfter: staleAfter,
		now:        now,
	}
}

func (l *FileLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.create()
	if ok || err != nil {
		return ok, err
	}

	holder, stale, err := l.inspect()
	if errors.Is(err, fs.ErrNotExist) {
		// Released between our create and stat.
		return l.create()
	}
	if err != nil || !stale {
		return false, err
	}

	reclaimed, err := l.reclaim(holder)
	if !reclaimed || err != nil {
		return false, err
	}
	return l.create()
}

// inspect reads the current holder's token and reports whether the file is
// past StaleAfter.
func (l *FileLock) inspect() (holder string, stale bool, err error) {
	fi, err := os.Stat(l.path)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		return "", false, err
	}
	stale = l.staleAfter > 0 && l.now().Sub(fi.ModTime()) > l.staleAfter
	return strings.TrimSpace(string(b)), stale, nil
}

// reclaim removes the lock file only if it is still stale and still carries
// holder. A concurrent reclaimer that already replaced it wins.
func (l *FileLock) reclaim(holder string) (bool, error) {
	current, stale, err := l.inspect()
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if current != holder || !stale {
		return false, nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("remove stale lock %s: %w", l.path, err)
	}
	return true, nil
}

func (l *FileLock) create() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create lock %s: %w", l.path, err)
	}
	_, werr := f.WriteString(l.token + "\n")
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(l.path)
		return false, fmt.Errorf("write lock %s: %w", l.path, err)
	}
	return true, nil
}

// Refresh bumps the lock file's mtime so a long run is not reclaimed as
// stale. It returns [ErrLost] when the file no longer carries this token.
func (l *FileLock) Refresh(context.Context) error {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrLost, l.path)
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(b)) != l.token {
		return fmt.Errorf("%w: %s", ErrLost, l.path)
	}
	now := l.now()
	if err := os.Chtimes(l.path, now, now); err != nil {
		return fmt.Errorf("refresh lock %s: %w", l.path, err)
	}
	return nil
}

// Release removes the lock file only if it still carries this lock's token.
func (l *FileLock) Release(context.Context) error {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(b)) != l.token {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *FileLock) Close() error { return nil }

func (l *FileLock) Describe() string { return l.path }
