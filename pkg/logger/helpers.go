package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Skip reasons shared by the scanner and the workers
const (
	ReasonDuplicate     = "duplicate"
	ReasonUnknownSize   = "unknown_size"
	ReasonFileTooLarge  = "file_too_large"
	ReasonExists        = "already_exists"
	ReasonLocalQuota    = "local_quota"
	ReasonRemoteQuota   = "remote_quota"
	ReasonRemoteUnknown = "remote_size_unavailable"
	ReasonUnsupported   = "unsupported_post"
	ReasonRepost        = "repost"
)

// LogSkip logs an item that was not processed. Capacity related reasons are
// warnings; everything else is informational.
func LogSkip(l Logger, reason string, fields map[string]interface{}) {
	all := map[string]interface{}{"reason": reason}
	for k, v := range fields {
		all[k] = v
	}

	switch reason {
	case ReasonFileTooLarge, ReasonLocalQuota, ReasonRemoteQuota, ReasonRemoteUnknown, ReasonUnknownSize:
		l.WarnWithFields("Item skipped", all)
	default:
		l.InfoWithFields("Item skipped", all)
	}
}

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	cl := l.WithField("component", component)
	if len(config) > 0 {
		cl = cl.WithFields(config)
	}
	cl.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return NewWithWriter(io.Discard, zerolog.Disabled)
}
