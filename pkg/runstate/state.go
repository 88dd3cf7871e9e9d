package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// State is what one run leaves behind for the next
type State struct {
	LastRunTimestamp time.Time `json:"lastRunTimestamp"`
	TrackedSources   []string  `json:"trackedSources"`
}

// NewState records a run that started at startedAt over sources
func NewState(startedAt time.Time, sources []string) *State {
	tracked := append([]string(nil), sources...)
	sort.Strings(tracked)
	return &State{
		LastRunTimestamp: startedAt.UTC().Truncate(time.Second),
		TrackedSources:   tracked,
	}
}

// IsTracked reports whether source was scanned by the previous run
func (s *State) IsTracked(source string) bool {
	if s == nil {
		return false
	}
	for _, t := range s.TrackedSources {
		if t == source {
			return true
		}
	}
	return false
}

// CursorFor returns the lower bound for listing source. The zero time means
// the source is scanned from the newest post with no bound.
func (s *State) CursorFor(source string) time.Time {
	if !s.IsTracked(source) {
		return time.Time{}
	}
	return s.LastRunTimestamp
}

// DefaultPath returns artcollector/state.json under the platform data directory
func DefaultPath() (string, error) {
	dir, err := dataDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

func dataDirectory() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "artcollector"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "artcollector"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "artcollector"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "artcollector"), nil
	}
}
