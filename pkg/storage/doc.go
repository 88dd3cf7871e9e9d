// Package storage handles the local side of a download: atomic writes,
// existence checks, removal after archiving and temp directory cleanup.
//
// All operations go through an afero.Fs so tests run against an in-memory
// filesystem.
//
//	m, err := storage.NewManager(afero.NewOsFs(), "temp", log)
//	if err != nil {
//	    return err
//	}
//	n, err := m.WriteAtomic(rec.LocalPath, resp.Body)
package storage
