package naming

import (
	"strings"
	"time"
)

// Renamer maps raw export filenames to canonical names. Now supplies the
// fallback date for names without an embedded date; it is read once per
// call so a batch can share a single clock.
type Renamer struct {
	Now func() time.Time
}

// NewRenamer returns a Renamer using now as its clock. A nil now means
// time.Now.
func NewRenamer(now func() time.Time) *Renamer {
	if now == nil {
		now = time.Now
	}
	return &Renamer{Now: now}
}

// Classify decomposes a raw filename. The boolean is false when the name
// matches no file type; source and date are not computed in that case.
func (r *Renamer) Classify(name string) (Classification, bool) {
	return Classify(name, r.Now())
}

// RenamedFilename returns the canonical name for name, or false when the
// name is unrecognized.
func (r *Renamer) RenamedFilename(name string) (string, bool) {
	c, ok := r.Classify(name)
	if !ok {
		return "", false
	}
	return c.CanonicalName(), true
}

// Classify is the clock-explicit form of [Renamer.Classify].
func Classify(name string, now time.Time) (Classification, bool) {
	lower := strings.ToLower(name)

	ft, ok := matchType(lower)
	if !ok {
		return Classification{}, false
	}
	return Classification{
		Type:   ft,
		Source: matchSource(lower),
		Date:   ExtractDate(name, now),
	}, true
}
