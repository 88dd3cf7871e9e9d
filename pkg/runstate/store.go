package runstate

import (
	"fmt"
	"os"
	"path/filepath"

	"artcollector/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

// Store persists State as a JSON file
type Store struct {
	fs     afero.Fs
	path   string
	logger logger.Logger
}

// NewStore creates a store for path on fs
func NewStore(fs afero.Fs, path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{
		fs:     fs,
		path:   path,
		logger: log.WithField("component", "runstate"),
	}
}

// Path returns the state file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the previous run's state. A missing or malformed file yields
// nil, nil so the run treats every source as new.
func (s *Store) Load() (*State, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.InfoWithFields("No run state found, scanning all sources from the start", map[string]interface{}{
				"path": s.path,
			})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.WarnWithFields("Ignoring malformed run state", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil, nil
	}
	if st.LastRunTimestamp.IsZero() {
		s.logger.WarnWithFields("Ignoring run state without timestamp", map[string]interface{}{
			"path": s.path,
		})
		return nil, nil
	}

	s.logger.InfoWithFields("Run state loaded", map[string]interface{}{
		"last_run": st.LastRunTimestamp,
		"sources":  len(st.TrackedSources),
	})
	return &st, nil
}

// Save writes st to a temp file, syncs it and renames it over the state file
func (s *Store) Save(st *State) error {
	if st == nil {
		return fmt.Errorf("nil run state")
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run state: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := s.fs.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		s.fs.Remove(tempPath)
		return fmt.Errorf("failed to write run state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		s.fs.Remove(tempPath)
		return fmt.Errorf("failed to sync run state: %w", err)
	}

	if err := file.Close(); err != nil {
		s.fs.Remove(tempPath)
		return fmt.Errorf("failed to close run state: %w", err)
	}

	if err := s.fs.Rename(tempPath, s.path); err != nil {
		s.fs.Remove(tempPath)
		return fmt.Errorf("failed to replace run state: %w", err)
	}

	s.logger.InfoWithFields("Run state saved", map[string]interface{}{
		"path":     s.path,
		"last_run": st.LastRunTimestamp,
		"sources":  len(st.TrackedSources),
	})
	return nil
}

// Reset deletes the state file so the next run starts from scratch
func (s *Store) Reset() error {
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run state: %w", err)
	}
	s.logger.Info("Run state deleted")
	return nil
}
