package downloader

import "time"

// Stats counts outcomes across all workers
type Stats struct {
	Processed  int
	Downloaded int
	Archived   int
	DryRun     int
	Failed     int
	Bytes      int64
	Skipped    map[string]int
	Duration   time.Duration
}

func newStats() Stats {
	return Stats{Skipped: make(map[string]int)}
}

func (s *Stats) add(r Result) {
	s.Processed++
	s.Duration += r.Duration
	switch r.Outcome {
	case OutcomeArchived:
		s.Archived++
		s.Downloaded++
		s.Bytes += r.Bytes
	case OutcomeDownloaded:
		s.Downloaded++
		s.Bytes += r.Bytes
	case OutcomeDryRun:
		s.DryRun++
	case OutcomeSkipped:
		s.Skipped[r.Reason]++
	case OutcomeFailed:
		s.Failed++
	}
}

// TotalSkipped sums skips over all reasons
func (s Stats) TotalSkipped() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

func (s Stats) clone() Stats {
	c := s
	c.Skipped = make(map[string]int, len(s.Skipped))
	for k, v := range s.Skipped {
		c.Skipped[k] = v
	}
	return c
}
