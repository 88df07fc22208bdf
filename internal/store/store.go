package store

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	optionsFileName = "options.json"
	sessionDBName   = "session.sqlite"
)

// Store is the on-disk home of bugshot: options.json, the session cache and logs.
type Store struct {
	Dir string
}

// ConfigDir resolves the store directory. BUGSHOT_CONFIG_DIR keeps tests away from ~/.bugshot.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("BUGSHOT_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bugshot"), nil
}

// Open returns a Store rooted at dir, or at ConfigDir when dir is empty.
func Open(dir string) (Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		d, err := ConfigDir()
		if err != nil {
			return Store{}, err
		}
		dir = d
	}
	s := Store{Dir: filepath.Clean(dir)}
	if err := s.Ensure(); err != nil {
		return Store{}, err
	}
	return s, nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) optionsPath() string {
	return filepath.Join(s.Dir, optionsFileName)
}

func (s Store) sessionDBPath() string {
	return filepath.Join(s.Dir, sessionDBName)
}
