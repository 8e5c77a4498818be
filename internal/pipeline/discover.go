package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/backmassage/dealsync/internal/naming"
)

// CandidateFile is a fresh export found by [Recent].
type CandidateFile struct {
	Path    string
	Name    string
	ModTime time.Time
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// Recent lists regular .csv files (extension matched case-insensitively)
// directly inside dir whose modification time is at most window before
// now. Subdirectories, other extensions and stale files are skipped
// silently. Results are sorted by name for deterministic processing order.
// An empty result is not an error.
func Recent(fsys FileSystem, dir string, window time.Duration, now time.Time) ([]CandidateFile, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []CandidateFile
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// Stat follows symlinks, so a link to a regular file counts.
		fi, err := fsys.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if now.Sub(fi.ModTime()) > window {
			continue
		}
		out = append(out, CandidateFile{Path: path, Name: e.Name(), ModTime: fi.ModTime()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CanonicalFiles returns the paths of regular files in dir whose names are
// already canonical, sorted by name. Upload-only runs use it to pick up
// files renamed by an earlier run.
func CanonicalFiles(fsys FileSystem, dir string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !naming.IsCanonical(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if fi, err := fsys.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}
