package ui

import (
	"fmt"
	"sort"
	"time"

	"artcollector/pkg/pipeline"

	"github.com/dustin/go-humanize"
)

// PrintSummary prints the end-of-run report
func PrintSummary(r *pipeline.Report) {
	if r == nil {
		return
	}

	title := "Run complete"
	if r.DryRun {
		title = "Dry run complete"
	}
	printf("\n%s %s in %s\n", Green("✓"), title, formatDuration(r.Duration))

	printf("  %s %d sources, %d queued, %d duplicates\n", Dim("•"), len(r.Sources), r.Scan.Accepted, r.Scan.Duplicates)
	printf("  %s %d archived, %d downloaded, %s\n", Dim("•"), r.Stats.Archived, r.Stats.Downloaded,
		humanize.IBytes(uint64(r.Stats.Bytes)))
	if r.DryRun {
		printf("  %s %d would be downloaded\n", Dim("•"), r.Stats.DryRun)
	}
	if r.LocalUsage > 0 {
		printf("  %s %s in the local directory\n", Dim("•"), humanize.IBytes(uint64(r.LocalUsage)))
	}

	reasons := make([]string, 0, len(r.Stats.Skipped))
	for reason := range r.Stats.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		printf("  %s skipped %d: %s\n", Dim("•"), r.Stats.Skipped[reason], reason)
	}

	if r.Stats.Failed > 0 {
		printf("  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d failed", r.Stats.Failed)))
	}
	if r.Scan.FailedSources > 0 {
		printf("  %s %s\n", Dim("•"), Yellow(fmt.Sprintf("%d sources could not be listed", r.Scan.FailedSources)))
	}
	if !r.DryRun && !r.StateSaved {
		printf("  %s %s\n", Dim("•"), Yellow("run state not saved"))
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
