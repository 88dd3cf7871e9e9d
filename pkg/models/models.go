package models

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// MediaKind describes where in a post a file was found
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Validation errors returned by NewFileRecord
var (
	ErrInvalidSize   = errors.New("size must be positive")
	ErrMissingAuthor = errors.New("author is required")
	ErrInvalidURL    = errors.New("source URL must be absolute http(s)")
	ErrMissingName   = errors.New("file name is required")
)

// FileRecord is one media file discovered by the scanner and handed to the
// workers. Records are built once by NewFileRecord and never modified.
type FileRecord struct {
	SourceURL   string    `json:"sourceUrl"`
	ETag        string    `json:"etag,omitempty"`
	DedupKey    string    `json:"dedupKey"`
	Author      string    `json:"author"`
	Name        string    `json:"name"`
	LocalPath   string    `json:"localPath"`
	ArchivePath string    `json:"archivePath"`
	SizeBytes   int64     `json:"sizeBytes"`
	Kind        MediaKind `json:"kind"`
}

// FileRecordParams holds the inputs of NewFileRecord
type FileRecordParams struct {
	SourceURL string
	ETag      string
	Author    string
	Name      string
	SizeBytes int64
	Kind      MediaKind
	LocalDir  string
	RemoteDir string
}

// NewFileRecord validates params and derives the dedup key and both paths
func NewFileRecord(p FileRecordParams) (*FileRecord, error) {
	if p.SizeBytes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, p.SizeBytes)
	}
	if strings.TrimSpace(p.Author) == "" {
		return nil, ErrMissingAuthor
	}
	if p.Name == "" {
		return nil, ErrMissingName
	}
	u, err := url.Parse(p.SourceURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, p.SourceURL)
	}

	etag := strings.Trim(p.ETag, `"`)
	dedupKey := etag
	if dedupKey == "" {
		dedupKey = p.SourceURL
	}

	kind := p.Kind
	if kind == "" {
		kind = KindImage
	}

	return &FileRecord{
		SourceURL:   p.SourceURL,
		ETag:        etag,
		DedupKey:    dedupKey,
		Author:      p.Author,
		Name:        p.Name,
		LocalPath:   filepath.Join(p.LocalDir, p.Name),
		ArchivePath: path.Join(p.RemoteDir, p.Name),
		SizeBytes:   p.SizeBytes,
		Kind:        kind,
	}, nil
}

// FileName builds "{author}_{slug}[_{suffix}]{ext}". A suffix of zero or less is omitted.
func FileName(author, slug string, suffix int, ext string) string {
	var b strings.Builder
	b.WriteString(author)
	b.WriteByte('_')
	b.WriteString(slug)
	if suffix > 0 {
		fmt.Fprintf(&b, "_%d", suffix)
	}
	b.WriteString(ext)
	return b.String()
}

// Fields returns the record as log fields
func (r *FileRecord) Fields() map[string]interface{} {
	return map[string]interface{}{
		"author": r.Author,
		"url":    r.SourceURL,
		"name":   r.Name,
		"size":   r.SizeBytes,
		"kind":   string(r.Kind),
	}
}
