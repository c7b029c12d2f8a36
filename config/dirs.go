package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// AppName is the directory name used under the XDG config and cache roots.
const AppName = "hidamari"

// ResolvePath expands a leading "~/" and returns the cleaned absolute path,
// the form fsnotify reports event names in.
func ResolvePath(p string) (string, error) {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		usr, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("failed to expand %s: %w", p, err)
		}
		p = filepath.Join(usr.HomeDir, rest)
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return abs, nil
}

// EnsureDir resolves pathString and creates it if missing.
func EnsureDir(pathString string) (string, error) {
	pathString, err := ResolvePath(pathString)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(pathString, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", pathString, err)
	}
	return pathString, nil
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
}

// ConfigDir returns $XDG_CONFIG_HOME/hidamari (or ~/.config/hidamari).
func ConfigDir() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), AppName)
}

// CacheDir returns $XDG_CACHE_HOME/hidamari (or ~/.cache/hidamari).
func CacheDir() string {
	return filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), AppName)
}

// VideosDir is where the panel looks for wallpapers: $XDG_VIDEOS_DIR/Hidamari.
func VideosDir() string {
	return filepath.Join(xdgDir("XDG_VIDEOS_DIR", "Videos"), "Hidamari")
}

// DefaultPath is the location of the shared resource file.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "hidamari.toml")
}
