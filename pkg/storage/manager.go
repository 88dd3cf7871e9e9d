package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"artcollector/pkg/logger"

	"github.com/spf13/afero"
)

// KeepFile is never removed by CleanDir
const KeepFile = ".gitkeep"

// tempSuffix marks in-progress downloads
const tempSuffix = ".part"

// Manager handles local file operations for downloaded media
type Manager struct {
	fs     afero.Fs
	dir    string
	logger logger.Logger
}

// NewManager creates a storage manager rooted at dir, creating it if needed
func NewManager(fs afero.Fs, dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{
		fs:     fs,
		dir:    dir,
		logger: log.WithField("component", "storage"),
	}, nil
}

// Dir returns the directory files are written to
func (m *Manager) Dir() string {
	return m.dir
}

// Exists reports whether a file is present at path
func (m *Manager) Exists(path string) (bool, error) {
	return afero.Exists(m.fs, path)
}

// WriteAtomic streams r into a temporary file next to path and renames it
// into place. On failure the temporary file is removed and nothing is left
// at path. It returns the number of bytes written.
func (m *Manager) WriteAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := afero.TempFile(m.fs, dir, "."+filepath.Base(path)+".*"+tempSuffix)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := out.Name()

	n, err := io.Copy(out, r)
	if err == nil {
		if syncErr := out.Sync(); syncErr != nil {
			out.Close()
			m.fs.Remove(tempPath)
			return n, fmt.Errorf("failed to sync file: %w", syncErr)
		}
	}
	closeErr := out.Close()

	if err != nil {
		m.fs.Remove(tempPath)
		return n, fmt.Errorf("failed to write file data: %w", err)
	}

	if closeErr != nil {
		m.fs.Remove(tempPath)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := m.fs.Rename(tempPath, path); err != nil {
		m.fs.Remove(tempPath)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return n, nil
}

// Remove deletes the file at path. A missing file is not an error.
func (m *Manager) Remove(path string) error {
	if err := m.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// CleanDir removes everything in dir except KeepFile and returns the
// number of entries removed
func (m *Manager) CleanDir(dir string) (int, error) {
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.Name() == KeepFile {
			continue
		}
		if err := m.fs.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	if removed > 0 {
		m.logger.InfoWithFields("Cleaned temporary directory", map[string]interface{}{
			"dir":     dir,
			"removed": removed,
		})
	}
	return removed, nil
}

// Usage returns the total size of regular files under dir, ignoring
// in-progress downloads
func (m *Manager) Usage(dir string) (int64, error) {
	var total int64
	err := afero.Walk(m.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && !strings.HasSuffix(info.Name(), tempSuffix) {
			total += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to measure %s: %w", dir, err)
	}
	return total, nil
}
