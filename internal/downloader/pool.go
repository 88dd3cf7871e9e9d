package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"artcollector/internal/queue"
	"artcollector/pkg/logger"
	"artcollector/pkg/models"
	"artcollector/pkg/quota"
)

// Source hands records to the workers
type Source interface {
	Pop(ctx context.Context) (*models.FileRecord, error)
}

// Fetcher opens a media URL for reading
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// LocalStore writes downloads to the local folder
type LocalStore interface {
	Exists(path string) (bool, error)
	WriteAtomic(path string, r io.Reader) (int64, error)
	Remove(path string) error
}

// Uploader copies a local file to the archive
type Uploader interface {
	Put(ctx context.Context, localPath, remotePath string) error
}

// Guards enforces the byte budgets
type Guards interface {
	CheckFile(size int64) error
	CheckRemote(ctx context.Context, size int64) error
	ReserveLocal(size int64) error
	CommitLocal(reserved, written int64)
	ReleaseLocal(reserved int64)
	Limits() quota.Limits
}

// Outcome is the final state of one record
type Outcome string

const (
	OutcomeArchived   Outcome = "archived"
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
	OutcomeDryRun     Outcome = "dry_run"
)

// Result reports what happened to one record
type Result struct {
	Record   *models.FileRecord
	Outcome  Outcome
	Reason   string
	Err      error
	Bytes    int64
	Duration time.Duration
}

// Options controls the per-item protocol
type Options struct {
	// Archive uploads each download and then removes the local copy
	Archive bool
	// KeepLocal keeps the local copy after a successful upload
	KeepLocal bool
	// DryRun logs records without touching the network or disk
	DryRun bool
	// Results receives one Result per record when set. The caller must drain
	// it; the pool closes it when all workers have stopped.
	Results chan<- Result
}

// ErrTooLarge is returned when a download grows past the per-file cap
var ErrTooLarge = stderrors.New("download exceeds file size limit")

// WorkerPool runs N workers that take records from a Source and apply the
// guard, download and archive steps to each
type WorkerPool struct {
	numWorkers int
	source     Source
	fetcher    Fetcher
	store      LocalStore
	uploader   Uploader
	guards     Guards
	fileLimit  int64
	opts       Options
	logger     logger.Logger

	wg    sync.WaitGroup
	mu    sync.Mutex
	stats Stats
}

// NewWorkerPool creates a worker pool. uploader may be nil when archiving is disabled.
func NewWorkerPool(
	numWorkers int,
	source Source,
	fetcher Fetcher,
	store LocalStore,
	uploader Uploader,
	guards Guards,
	opts Options,
	log logger.Logger,
) *WorkerPool {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if uploader == nil {
		opts.Archive = false
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		source:     source,
		fetcher:    fetcher,
		store:      store,
		uploader:   uploader,
		guards:     guards,
		fileLimit:  guards.Limits().FileSize,
		opts:       opts,
		logger:     log.WithField("component", "worker_pool"),
		stats:      newStats(),
	}
}

// Start launches the workers. They run until each receives a stop sentinel
// or ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	logger.LogComponentStart(wp.logger, "worker_pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"archive":     wp.opts.Archive,
		"dry_run":     wp.opts.DryRun,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has stopped and returns the final stats
func (wp *WorkerPool) Wait() Stats {
	wp.wg.Wait()
	if wp.opts.Results != nil {
		close(wp.opts.Results)
	}
	logger.LogComponentStop(wp.logger, "worker_pool", "drained")
	return wp.Stats()
}

// Stats returns a snapshot of the counters
func (wp *WorkerPool) Stats() Stats {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.stats.clone()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.logger.WithField("worker_id", id)
	log.Debug("Worker started")

	for {
		rec, err := wp.source.Pop(ctx)
		if err != nil {
			if stderrors.Is(err, queue.ErrStopped) {
				log.Debug("Worker stopping - stop signal received")
			} else {
				log.WithError(err).Debug("Worker stopping - context cancelled")
			}
			return
		}

		result := wp.process(ctx, rec, log)
		wp.record(result)

		if wp.opts.Results != nil {
			select {
			case wp.opts.Results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// process applies the per-item protocol. It never returns an error; every
// failure is reported in the Result.
func (wp *WorkerPool) process(ctx context.Context, rec *models.FileRecord, log logger.Logger) (result Result) {
	start := time.Now()
	result = Result{Record: rec}
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Outcome = OutcomeFailed
			result.Err = fmt.Errorf("panic while processing record: %v", r)
			log.WithFields(rec.Fields()).WithError(result.Err).Error("Worker recovered from panic")
		}
	}()

	skip := func(reason string, cause error) Result {
		fields := rec.Fields()
		if cause != nil {
			fields["error"] = cause.Error()
		}
		logger.LogSkip(log, reason, fields)
		result.Outcome = OutcomeSkipped
		result.Reason = reason
		result.Err = cause
		return result
	}
	fail := func(step string, cause error) Result {
		log.WithFields(rec.Fields()).WithField("step", step).WithError(cause).Error("Failed to process record")
		result.Outcome = OutcomeFailed
		result.Reason = step
		result.Err = cause
		return result
	}

	if err := wp.guards.CheckFile(rec.SizeBytes); err != nil {
		return skip(logger.ReasonFileTooLarge, err)
	}

	exists, err := wp.store.Exists(rec.LocalPath)
	if err != nil {
		return fail("exists", err)
	}
	if exists {
		return skip(logger.ReasonExists, nil)
	}

	if wp.opts.Archive {
		if err := wp.guards.CheckRemote(ctx, rec.SizeBytes); err != nil {
			if stderrors.Is(err, quota.ErrExceeded) {
				return skip(logger.ReasonRemoteQuota, err)
			}
			return skip(logger.ReasonRemoteUnknown, err)
		}
	}

	if err := wp.guards.ReserveLocal(rec.SizeBytes); err != nil {
		return skip(logger.ReasonLocalQuota, err)
	}

	if wp.opts.DryRun {
		wp.guards.ReleaseLocal(rec.SizeBytes)
		log.InfoWithFields("Dry run, not downloading", rec.Fields())
		result.Outcome = OutcomeDryRun
		return result
	}

	log.InfoWithFields("Processing record", rec.Fields())
	written, err := wp.download(ctx, rec)
	if err != nil {
		wp.guards.ReleaseLocal(rec.SizeBytes)
		return fail("download", err)
	}
	wp.guards.CommitLocal(rec.SizeBytes, written)
	result.Bytes = written
	result.Outcome = OutcomeDownloaded

	if written != rec.SizeBytes {
		log.WarnWithFields("Downloaded size differs from advertised size", map[string]interface{}{
			"url":        rec.SourceURL,
			"advertised": rec.SizeBytes,
			"written":    written,
		})
	}

	if !wp.opts.Archive {
		return result
	}

	if err := wp.uploader.Put(ctx, rec.LocalPath, rec.ArchivePath); err != nil {
		return fail("archive", err)
	}
	result.Outcome = OutcomeArchived

	if !wp.opts.KeepLocal {
		if err := wp.store.Remove(rec.LocalPath); err != nil {
			log.WithFields(rec.Fields()).WithError(err).Warn("Failed to remove local copy after upload")
		}
	}

	log.DebugWithFields("Record archived", map[string]interface{}{
		"archive_path": rec.ArchivePath,
		"bytes":        written,
	})
	return result
}

func (wp *WorkerPool) download(ctx context.Context, rec *models.FileRecord) (int64, error) {
	body, err := wp.fetcher.Fetch(ctx, rec.SourceURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	var r io.Reader = body
	if wp.fileLimit > 0 {
		r = &cappedReader{r: body, remaining: wp.fileLimit}
	}
	return wp.store.WriteAtomic(rec.LocalPath, r)
}

func (wp *WorkerPool) record(r Result) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.stats.add(r)
}

// cappedReader fails once more than remaining bytes have been read
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
