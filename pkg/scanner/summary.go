package scanner

// SourceSummary counts what the scanner did with one source
type SourceSummary struct {
	Source       string
	Cursored     bool
	Pages        int
	Accepted     int
	Duplicates   int
	Skipped      int
	Reposts      int
	Unsupported  int
	LimitReached bool
	Failed       bool
}

// Summary aggregates all sources of a scan
type Summary struct {
	Sources       []SourceSummary
	Accepted      int
	Duplicates    int
	Skipped       int
	FailedSources int
}

func (s *Summary) add(ss SourceSummary) {
	s.Sources = append(s.Sources, ss)
	s.Accepted += ss.Accepted
	s.Duplicates += ss.Duplicates
	s.Skipped += ss.Skipped
	if ss.Failed {
		s.FailedSources++
	}
}

// Scanned returns the sources whose listing completed, in scan order
func (s *Summary) Scanned() []string {
	var names []string
	for _, ss := range s.Sources {
		if !ss.Failed {
			names = append(names, ss.Source)
		}
	}
	return names
}
