package pipeline

// RunStats tracks outcome counters across a rename batch.
type RunStats struct {
	Total               int
	Renamed             int
	SkippedCanonical    int
	SkippedUnrecognized int
	SkippedCollision    int
	Failed              int
}

// Skipped returns the number of files left untouched on purpose.
func (s *RunStats) Skipped() int {
	return s.SkippedCanonical + s.SkippedUnrecognized + s.SkippedCollision
}

func (s *RunStats) add(k OutcomeKind) {
	switch k {
	case Renamed:
		s.Renamed++
	case SkippedCanonical:
		s.SkippedCanonical++
	case SkippedUnrecognized:
		s.SkippedUnrecognized++
	case SkippedCollision:
		s.SkippedCollision++
	case Failed:
		s.Failed++
	}
}
