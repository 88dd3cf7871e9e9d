package pipeline

import (
	"time"

	"artcollector/internal/downloader"
	"artcollector/pkg/logger"
	"artcollector/pkg/scanner"

	"github.com/dustin/go-humanize"
)

// Report summarizes one run
type Report struct {
	RunID      string
	StartedAt  time.Time
	Sources    []string
	Scan       scanner.Summary
	Stats      downloader.Stats
	DryRun     bool
	StateSaved bool
	// LocalUsage is the size of the local directory when the run ended
	LocalUsage int64
	Duration   time.Duration
}

func (r *Report) log(log logger.Logger) {
	fields := map[string]interface{}{
		"sources":        len(r.Sources),
		"failed_sources": r.Scan.FailedSources,
		"queued":         r.Scan.Accepted,
		"duplicates":     r.Scan.Duplicates,
		"unresolved":     r.Scan.Skipped,
		"processed":      r.Stats.Processed,
		"downloaded":     r.Stats.Downloaded,
		"archived":       r.Stats.Archived,
		"failed":         r.Stats.Failed,
		"skipped":        r.Stats.TotalSkipped(),
		"bytes":          humanize.IBytes(uint64(r.Stats.Bytes)),
		"local_usage":    humanize.IBytes(uint64(r.LocalUsage)),
		"state_saved":    r.StateSaved,
		"duration":       r.Duration.Round(time.Millisecond).String(),
	}
	if r.DryRun {
		fields["dry_run"] = r.Stats.DryRun
	}
	for reason, n := range r.Stats.Skipped {
		fields["skipped_"+reason] = n
	}
	log.InfoWithFields("Run summary", fields)
}
