package ui

import (
	"fmt"
	"io"
	"time"

	"artcollector/internal/downloader"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

const updateInterval = 100 * time.Millisecond

// Tally counts worker results as they arrive
type Tally struct {
	Archived   int
	Downloaded int
	DryRun     int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Done returns the number of results seen
func (t Tally) Done() int {
	return t.Archived + t.Downloaded + t.DryRun + t.Skipped + t.Failed
}

func (t Tally) String() string {
	s := fmt.Sprintf("%d archived • %d downloaded • %d skipped", t.Archived, t.Downloaded, t.Skipped)
	if t.DryRun > 0 {
		s += fmt.Sprintf(" • %d dry run", t.DryRun)
	}
	if t.Failed > 0 {
		s += " • " + Red(fmt.Sprintf("%d failed", t.Failed))
	}
	return s + " • " + humanize.IBytes(uint64(t.Bytes))
}

func (t *Tally) add(r downloader.Result) {
	switch r.Outcome {
	case downloader.OutcomeArchived:
		t.Archived++
	case downloader.OutcomeDownloaded:
		t.Downloaded++
	case downloader.OutcomeDryRun:
		t.DryRun++
	case downloader.OutcomeSkipped:
		t.Skipped++
	case downloader.OutcomeFailed:
		t.Failed++
	}
	t.Bytes += r.Bytes
}

// Progress shows a spinner fed by worker results. The number of records is
// not known up front, so the bar counts without a total.
type Progress struct {
	bar     *progressbar.ProgressBar
	w       io.Writer
	verbose bool
	tally   Tally
}

// NewProgress creates a display writing to w. verbose prints one line per
// record instead of the spinner. Quiet mode disables both.
func NewProgress(w io.Writer, verbose bool) *Progress {
	p := &Progress{w: w, verbose: verbose}
	if IsQuietMode() || verbose {
		return p
	}
	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("collecting"),
	)
	return p
}

// Consume reads results until the channel is closed and returns the tally
func (p *Progress) Consume(results <-chan downloader.Result) Tally {
	for r := range results {
		p.tally.add(r)
		switch {
		case p.bar != nil:
			p.bar.Describe(p.tally.String())
			_ = p.bar.Add(1)
		case p.verbose && !IsQuietMode():
			p.printResult(r)
		}
	}
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	return p.tally
}

func (p *Progress) printResult(r downloader.Result) {
	name := "?"
	if r.Record != nil {
		name = r.Record.Name
	}
	switch r.Outcome {
	case downloader.OutcomeArchived, downloader.OutcomeDownloaded:
		fmt.Fprintf(p.w, "%s %s • %s\n", Green("✓"), name, Dim(humanize.IBytes(uint64(r.Bytes))))
	case downloader.OutcomeDryRun:
		fmt.Fprintf(p.w, "%s %s • %s\n", Cyan("○"), name, Dim("would download"))
	case downloader.OutcomeSkipped:
		fmt.Fprintf(p.w, "%s %s • %s\n", Yellow("-"), name, Dim(r.Reason))
	case downloader.OutcomeFailed:
		fmt.Fprintf(p.w, "%s %s • %s: %v\n", Red("✗"), name, r.Reason, r.Err)
	}
}
