package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Config defines the parameters the TUI client needs.
type Config struct {
	// ServerURL is the backend's http(s) base, e.g. http://localhost:5001.
	ServerURL string
	// DataDir holds the session database and the log file.
	DataDir string
	// LogLevel is a zerolog level name; empty means info.
	LogLevel string
}

// SessionPath is the SQLite file holding the persisted session.
func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "parley.db")
}

// LogPath is the log file. Logs never go to stdout, the TUI owns it.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "parley.log")
}

// DefaultDataDir returns a per-user data path for the session database
// and log file.
func DefaultDataDir() string {
	if env := os.Getenv("PARLEY_DATA_DIR"); env != "" {
		return env
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "parley")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Parley")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Parley")
		}
		return filepath.Join(home, ".local", "share", "parley")
	}
	return filepath.Join(".", ".parley")
}

// NormalizeServerURL validates the backend base URL and trims the
// trailing slash so endpoint joins stay clean.
func NormalizeServerURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("server URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("server URL must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("server URL is missing a host")
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}
