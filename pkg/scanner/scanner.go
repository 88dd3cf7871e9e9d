package scanner

import (
	"context"
	"time"

	"artcollector/pkg/logger"
	"artcollector/pkg/models"
	"artcollector/pkg/runstate"
	"artcollector/pkg/tumblr"
)

// PostLister lists a blog's posts page by page
type PostLister interface {
	Posts(ctx context.Context, blog string, after time.Time, offset int) (*tumblr.PostsPage, error)
	PageSize() int
}

// Resolver probes a media URL and builds its record
type Resolver interface {
	Resolve(ctx context.Context, rawURL, author, postSlug string, suffix int) (*models.FileRecord, error)
}

// Pusher accepts records for the workers, blocking when they are busy
type Pusher interface {
	Push(ctx context.Context, rec *models.FileRecord) error
}

// Options controls what the scanner harvests
type Options struct {
	// FilesPerSource caps accepted records per source, zero for no cap
	FilesPerSource int
	CollectVideos  bool
}

// Scanner is the single producer of the pipeline
type Scanner struct {
	lister   PostLister
	resolver Resolver
	opts     Options
	logger   logger.Logger
}

// New creates a scanner
func New(lister PostLister, resolver Resolver, opts Options, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Scanner{
		lister:   lister,
		resolver: resolver,
		opts:     opts,
		logger:   log.WithField("component", "scanner"),
	}
}

// Scan lists every source in order and pushes the accepted records. A
// source whose listing fails is abandoned and the scan moves on; only
// cancellation of ctx stops the whole scan.
func (s *Scanner) Scan(ctx context.Context, sources []string, prior *runstate.State, out Pusher) (Summary, error) {
	var summary Summary
	logger.LogComponentStart(s.logger, "scanner", map[string]interface{}{
		"sources":          len(sources),
		"files_per_source": s.opts.FilesPerSource,
		"first_run":        prior == nil,
	})

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ss, err := s.scanSource(ctx, source, prior, out)
		summary.add(ss)
		if err != nil {
			return summary, err
		}
	}

	logger.LogComponentStop(s.logger, "scanner", "all sources listed")
	return summary, nil
}

// sourceScan accumulates one source's records; nothing is shared across sources
type sourceScan struct {
	summary SourceSummary
	seenKey map[string]bool
	seenURL map[string]bool
	log     logger.Logger
}

func (s *Scanner) scanSource(ctx context.Context, source string, prior *runstate.State, out Pusher) (SourceSummary, error) {
	after := prior.CursorFor(source)
	acc := &sourceScan{
		summary: SourceSummary{Source: source, Cursored: !after.IsZero()},
		seenKey: make(map[string]bool),
		seenURL: make(map[string]bool),
		log:     s.logger.WithField("source", source),
	}

	fields := map[string]interface{}{"cursored": acc.summary.Cursored}
	if acc.summary.Cursored {
		fields["after"] = after
	}
	acc.log.InfoWithFields("Scanning source", fields)

	pageSize := s.lister.PageSize()
	for offset := 0; ; offset += pageSize {
		page, err := s.lister.Posts(ctx, source, after, offset)
		if err != nil {
			if ctx.Err() != nil {
				return acc.summary, ctx.Err()
			}
			acc.log.WithError(err).WarnWithFields("Listing failed, abandoning source", map[string]interface{}{
				"offset": offset,
			})
			acc.summary.Failed = true
			return acc.summary, nil
		}
		acc.summary.Pages++

		for _, post := range page.Posts {
			limitReached, err := s.handlePost(ctx, acc, post, out)
			if err != nil {
				return acc.summary, err
			}
			if limitReached {
				acc.summary.LimitReached = true
				acc.log.InfoWithFields("File limit reached for source", map[string]interface{}{
					"accepted": acc.summary.Accepted,
				})
				return acc.summary, nil
			}
		}

		if len(page.Posts) < pageSize {
			acc.log.DebugWithFields("End of listing", map[string]interface{}{
				"pages":    acc.summary.Pages,
				"accepted": acc.summary.Accepted,
			})
			return acc.summary, nil
		}
	}
}

// handlePost resolves and pushes the assets of one post. It reports whether
// the source's file limit has been reached.
func (s *Scanner) handlePost(ctx context.Context, acc *sourceScan, post tumblr.Post, out Pusher) (bool, error) {
	meta := post.Meta()
	if meta.Repost {
		acc.summary.Reposts++
		acc.log.DebugWithFields("Skipping repost", map[string]interface{}{
			"post_id": meta.ID,
			"reason":  logger.ReasonRepost,
		})
		return false, nil
	}

	var assets []asset
	switch p := post.(type) {
	case tumblr.TextPost:
		assets = textAssets(p.Content, s.opts.CollectVideos)
	case tumblr.PhotoPost:
		assets = []asset{{url: p.PhotoURL, kind: models.KindImage}}
	case tumblr.UnsupportedPost:
		acc.summary.Unsupported++
		acc.log.InfoWithFields("Unsupported post", map[string]interface{}{
			"post_id": meta.ID,
			"type":    meta.Type,
			"reason":  p.Reason,
		})
		return false, nil
	}

	author := acc.summary.Source
	slug := meta.SlugOrID()
	for i, a := range assets {
		suffix := 0
		if len(assets) > 1 {
			suffix = i + 1
		}

		if acc.seenURL[a.url] {
			acc.summary.Duplicates++
			continue
		}
		acc.seenURL[a.url] = true

		rec, err := s.resolver.Resolve(ctx, a.url, author, slug, suffix)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			acc.summary.Skipped++
			acc.log.WithError(err).WarnWithFields("Probe failed, skipping media", map[string]interface{}{
				"url":     a.url,
				"post_id": meta.ID,
			})
			continue
		}
		if rec == nil {
			acc.summary.Skipped++
			continue
		}

		if acc.seenKey[rec.DedupKey] {
			acc.summary.Duplicates++
			acc.log.DebugWithFields("Duplicate media", map[string]interface{}{
				"url":    rec.SourceURL,
				"reason": logger.ReasonDuplicate,
			})
			continue
		}
		acc.seenKey[rec.DedupKey] = true

		if err := out.Push(ctx, rec); err != nil {
			return false, err
		}
		acc.summary.Accepted++
		acc.log.DebugWithFields("Record queued", rec.Fields())

		if s.opts.FilesPerSource > 0 && acc.summary.Accepted >= s.opts.FilesPerSource {
			return true, nil
		}
	}
	return false, nil
}
