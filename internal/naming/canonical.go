package naming

import (
	"regexp"
	"time"
)

var reCanonical = regexp.MustCompile(`^(bulk|block|Insider)_(BSE|NSE)_(\d{8})\.csv$`)

// IsCanonical reports whether name already has the canonical shape. It is
// case-sensitive: "Bulk_BSE_25062025.csv" is not canonical.
func IsCanonical(name string) bool {
	return reCanonical.MatchString(name)
}

// ParseCanonical decomposes a canonical name. It returns false when name is
// not canonical or its eight digits are not a calendar date.
func ParseCanonical(name string) (Classification, bool) {
	m := reCanonical.FindStringSubmatch(name)
	if m == nil {
		return Classification{}, false
	}
	d, err := time.Parse(DateLayout, m[3])
	if err != nil {
		return Classification{}, false
	}
	return Classification{Type: FileType(m[1]), Source: Source(m[2]), Date: d}, true
}
