package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"artcollector/pkg/errors"
	"artcollector/pkg/logger"
	"artcollector/pkg/models"
)

// DefaultProbeTimeout bounds a single HEAD request
const DefaultProbeTimeout = 10 * time.Second

// Options configures a Resolver
type Options struct {
	Timeout   time.Duration
	LocalDir  string
	RemoteDir string
	UserAgent string
}

// Resolver turns a media URL into a FileRecord by probing it with HEAD
type Resolver struct {
	httpClient *http.Client
	opts       Options
	logger     logger.Logger
}

// NewResolver creates a Resolver. A nil httpClient uses a client with opts.Timeout.
func NewResolver(httpClient *http.Client, opts Options, log logger.Logger) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Resolver{
		httpClient: httpClient,
		opts:       opts,
		logger:     log.WithField("component", "resolver"),
	}
}

// Resolve probes rawURL and builds a record named {author}_{postSlug}[_{suffix}]{ext}.
// It returns nil, nil when the server does not report a usable content length.
func (r *Resolver) Resolve(ctx context.Context, rawURL, author, postSlug string, suffix int) (*models.FileRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, errors.Wrap(errors.ErrorTypeParsing, 0, fmt.Sprintf("invalid media URL %q", rawURL), err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, 0, "failed to create probe request", err)
	}
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, fmt.Sprintf("probe %s", rawURL), err)
	}
	resp.Body.Close()
	logger.LogRequest(r.logger, http.MethodHead, rawURL, resp.StatusCode, float64(time.Since(start).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.FromStatusCode(resp.StatusCode, rawURL)
	}

	size, ok := contentLength(resp)
	if !ok {
		r.logger.WarnWithFields("Skipping media without content length", map[string]interface{}{
			"url":    rawURL,
			"author": author,
			"reason": logger.ReasonUnknownSize,
		})
		return nil, nil
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		r.logger.DebugWithFields("No entity tag, deduplicating by URL", map[string]interface{}{
			"url": rawURL,
		})
	}

	return models.NewFileRecord(models.FileRecordParams{
		SourceURL: rawURL,
		ETag:      etag,
		Author:    author,
		Name:      models.FileName(author, postSlug, suffix, path.Ext(u.Path)),
		SizeBytes: size,
		Kind:      kindOf(u.Path),
		LocalDir:  r.opts.LocalDir,
		RemoteDir: r.opts.RemoteDir,
	})
}

// contentLength returns the advertised size, false when absent or not positive
func contentLength(resp *http.Response) (int64, bool) {
	raw := resp.Header.Get("Content-Length")
	if raw == "" {
		if resp.ContentLength > 0 {
			return resp.ContentLength, true
		}
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func kindOf(p string) models.MediaKind {
	switch path.Ext(p) {
	case ".mp4", ".mov", ".webm", ".m4v":
		return models.KindVideo
	default:
		return models.KindImage
	}
}
