package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"artcollector/internal/downloader"
	"artcollector/internal/queue"
	"artcollector/pkg/archive"
	"artcollector/pkg/config"
	"artcollector/pkg/errors"
	"artcollector/pkg/logger"
	"artcollector/pkg/quota"
	"artcollector/pkg/retry"
	"artcollector/pkg/runstate"
	"artcollector/pkg/scanner"
	"artcollector/pkg/storage"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// logoutTimeout bounds the archive logout, which runs even after cancellation
const logoutTimeout = 30 * time.Second

// Upstream lists the followed blogs and their posts
type Upstream interface {
	scanner.PostLister
	AllFollowing(ctx context.Context) ([]string, error)
}

// Deps are the external collaborators of a run
type Deps struct {
	Upstream Upstream
	Resolver scanner.Resolver
	Fetcher  downloader.Fetcher
	// Sink may be nil when archiving is disabled
	Sink  archive.Sink
	Fs    afero.Fs
	State *runstate.Store
	// LoginRetry overrides the retry policy for archive login
	LoginRetry *retry.Config
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// RunOptions are per-invocation switches
type RunOptions struct {
	// DryRun scans and checks quotas but downloads nothing and saves no state
	DryRun bool
	// Results receives one downloader.Result per record; the pipeline closes it
	Results chan<- downloader.Result
}

// Pipeline wires scanner, queue and workers for one run at a time
type Pipeline struct {
	cfg    *config.Config
	deps   Deps
	logger logger.Logger
}

// New creates a pipeline from explicit dependencies
func New(cfg *config.Config, deps Deps, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if deps.Upstream == nil || deps.Resolver == nil || deps.Fetcher == nil {
		return nil, errors.New(errors.ErrorTypeConfig, 0, "upstream, resolver and fetcher are required")
	}
	if deps.State == nil {
		return nil, errors.New(errors.ErrorTypeConfig, 0, "run state store is required")
	}
	if cfg.Archive.Enabled && deps.Sink == nil {
		return nil, errors.New(errors.ErrorTypeConfig, 0, "archive is enabled but no sink is configured")
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: log}, nil
}

// Run performs one collection pass. The returned report is non-nil whenever
// the run got as far as starting the workers.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (report *Report, err error) {
	runID := uuid.NewString()
	log := p.logger.WithField("run_id", runID)
	startedAt := p.deps.Now()
	archiving := p.cfg.Archive.Enabled && !opts.DryRun

	results := opts.Results
	defer func() {
		// the pool closes results once started; close it here on earlier exits
		if results != nil {
			close(results)
		}
	}()

	log.InfoWithFields("Starting run", map[string]interface{}{
		"archive":     p.cfg.Archive.Enabled,
		"dry_run":     opts.DryRun,
		"workers":     p.cfg.Download.Workers,
		"queue_size":  p.cfg.QueueCapacity(),
		"state_path":  p.deps.State.Path(),
		"files_limit": p.cfg.Tumblr.FilesPerSource,
	})

	prior, err := p.deps.State.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}

	local, err := storage.NewManager(p.deps.Fs, p.cfg.LocalDir(), log)
	if err != nil {
		return nil, err
	}
	tempDir := p.cfg.Local.TempDir
	if archiving && !(p.cfg.Local.KeepFiles && filepath.Clean(tempDir) == filepath.Clean(local.Dir())) {
		removed, err := local.CleanDir(tempDir)
		if err != nil {
			return nil, fmt.Errorf("failed to clean temp directory: %w", err)
		}
		log.InfoWithFields("Cleaned temp directory", map[string]interface{}{
			"dir":     tempDir,
			"removed": removed,
		})
	}
	localUsage, err := local.Usage(local.Dir())
	if err != nil {
		return nil, err
	}
	log.InfoWithFields("Local directory", map[string]interface{}{
		"dir":   local.Dir(),
		"usage": humanize.IBytes(uint64(localUsage)),
	})

	var sink archive.Sink
	if archiving {
		sink = p.deps.Sink
		if err := p.login(ctx, log); err != nil {
			return nil, err
		}
		defer p.logout(ctx, log)
	}

	followed, err := p.deps.Upstream.AllFollowing(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed blogs: %w", err)
	}
	sources := scanner.SelectSources(followed, p.cfg.Tumblr.BlogsToCrawl, p.cfg.Tumblr.BlogsToIgnore)
	log.InfoWithFields("Sources selected", map[string]interface{}{
		"followed": len(followed),
		"selected": len(sources),
	})

	guards := quota.NewGuards(quota.Limits{
		FileSize:         p.cfg.Limits.FileSize.Bytes(),
		LocalFolderSize:  p.cfg.Limits.LocalFolderSize.Bytes(),
		RemoteFolderSize: p.cfg.Limits.RemoteFolderSize.Bytes(),
	}, sink, p.cfg.Archive.RemotePath)

	var uploader downloader.Uploader
	if sink != nil {
		uploader = sink
	}

	workers := p.cfg.Download.Workers
	q := queue.New(p.cfg.QueueCapacity())
	pool := downloader.NewWorkerPool(workers, q, p.deps.Fetcher, local, uploader, guards, downloader.Options{
		Archive:   archiving,
		KeepLocal: p.cfg.Local.KeepFiles,
		DryRun:    opts.DryRun,
		Results:   results,
	}, log)
	results = nil
	pool.Start(ctx)

	scan := scanner.New(p.deps.Upstream, p.deps.Resolver, scanner.Options{
		FilesPerSource: p.cfg.Tumblr.FilesPerSource,
		CollectVideos:  p.cfg.Tumblr.CollectVideos,
	}, log)
	summary, scanErr := scan.Scan(ctx, sources, prior, q)
	if scanErr == nil {
		scanErr = q.Stop(ctx, workers)
	}
	stats := pool.Wait()

	if used, err := local.Usage(local.Dir()); err != nil {
		log.WithError(err).Warn("Failed to measure local directory")
	} else {
		localUsage = used
	}

	report = &Report{
		RunID:      runID,
		StartedAt:  startedAt,
		Sources:    sources,
		Scan:       summary,
		Stats:      stats,
		DryRun:     opts.DryRun,
		LocalUsage: localUsage,
		Duration:   p.deps.Now().Sub(startedAt),
	}

	if scanErr == nil {
		scanErr = ctx.Err()
	}
	if scanErr != nil {
		report.log(log)
		log.WithError(scanErr).Warn("Run interrupted, run state not saved")
		return report, fmt.Errorf("run interrupted: %w", scanErr)
	}

	if !opts.DryRun {
		// failed sources stay untracked so the next run rescans them in full
		if err := p.deps.State.Save(runstate.NewState(startedAt, summary.Scanned())); err != nil {
			report.log(log)
			return report, err
		}
		report.StateSaved = true
	}

	report.log(log)
	return report, nil
}

func (p *Pipeline) login(ctx context.Context, log logger.Logger) error {
	cfg := retry.DefaultConfig()
	if p.deps.LoginRetry != nil {
		c := *p.deps.LoginRetry
		cfg = &c
	}
	cfg.Logger = log
	cfg.RetryIf = func(err error) bool {
		return !errors.IsType(err, errors.ErrorTypeConfig) && retry.DefaultRetryIf(err)
	}

	if err := retry.Do(ctx, p.deps.Sink.Login, cfg); err != nil {
		return fmt.Errorf("archive login failed: %w", err)
	}
	return nil
}

func (p *Pipeline) logout(ctx context.Context, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if err := p.deps.Sink.Logout(ctx); err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
		log.WithError(err).Warn("Archive logout failed")
	}
}
