package home

import (
	"os"
	"path/filepath"
)

// Default returns the default data directory, ~/.inboxd.
func Default() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".inboxd")
}

// DBPath returns the SQLite database path inside a data directory.
func DBPath(dir string) string {
	return filepath.Join(dir, "inbox.db")
}

// ConfigPath returns the daemon config file path inside a data directory.
func ConfigPath(dir string) string {
	return filepath.Join(dir, "config.toml")
}

// LogDir returns the log directory inside a data directory.
func LogDir(dir string) string {
	return filepath.Join(dir, "logs")
}

// LogPath returns the daemon log file path inside a data directory.
func LogPath(dir string) string {
	return filepath.Join(LogDir(dir), "inboxd.log")
}

// EnsureDir creates the data directory tree with proper permissions.
func EnsureDir(dir string) error {
	dirs := []string{
		dir,
		LogDir(dir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
