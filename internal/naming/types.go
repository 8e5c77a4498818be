package naming

import (
	"fmt"
	"time"
)

// FileType is the disclosure category of an export. The string values are
// the exact spellings used in canonical names; "Insider" is capitalized and
// downstream validation depends on that.
type FileType string

const (
	Bulk    FileType = "bulk"
	Block   FileType = "block"
	Insider FileType = "Insider"
)

// Source is the exchange an export originates from.
type Source string

const (
	BSE Source = "BSE"
	NSE Source = "NSE"
)

// DateLayout is the ddmmyyyy date encoding used in canonical names.
const DateLayout = "02012006"

// Classification is the semantic decomposition of a filename.
type Classification struct {
	Type   FileType
	Source Source
	Date   time.Time
}

// CanonicalName renders c as {type}_{source}_{ddmmyyyy}.csv.
func (c Classification) CanonicalName() string {
	return fmt.Sprintf("%s_%s_%s.csv", c.Type, c.Source, c.Date.Format(DateLayout))
}
