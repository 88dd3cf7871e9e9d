// Package logger provides the structured logging interface used across artcollector.
//
// It wraps zerolog with a small interface so components can take a Logger in
// their constructors and tests can substitute NewTestLogger or NewNopLogger.
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	log = log.WithField("run_id", runID)
//	log.InfoWithFields("Record queued", map[string]interface{}{
//	    "author": rec.Author,
//	    "size":   rec.SizeBytes,
//	})
//
// Without a log file, output goes to stderr through zerolog's console writer.
// With a file, JSON lines are appended to it as well.
package logger
