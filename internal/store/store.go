// Package store owns everything the client keeps on disk under the config
// directory: config.yaml, tui_state.json and the sqlite snapshot cache.
package store

import (
	"os"
	"path/filepath"
	"strings"
)

// Store is rooted at a config directory (default ~/.schedule).
type Store struct {
	Dir string
}

// DefaultDir returns $SCHEDULE_CONFIG_DIR, or ~/.schedule.
func DefaultDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.schedule).
	if v := strings.TrimSpace(os.Getenv("SCHEDULE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".schedule"), nil
}

// Open returns a store for dir, or for DefaultDir when dir is empty.
func Open(dir string) (Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return Store{}, err
		}
		dir = d
	}
	return Store{Dir: filepath.Clean(dir)}, nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) path(name string) string {
	return filepath.Join(s.Dir, name)
}

// LogPath is the default TUI log file.
func (s Store) LogPath() string {
	return s.path("schedule.log")
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
