// Package autostart toggles the XDG autostart entry that launches the
// wallpaper player at login. The entry's presence is the whole state.
package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const FileName = "hidamari.desktop"

// DefaultExec is the command the session runs at login.
const DefaultExec = "hidamari -p 1"

type Launcher struct {
	Path string
	Exec string
}

// DefaultPath returns $XDG_CONFIG_HOME/autostart/hidamari.desktop.
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "autostart", FileName)
}

func New() *Launcher {
	return &Launcher{Path: DefaultPath(), Exec: DefaultExec}
}

// Entry renders the desktop entry file.
func (l *Launcher) Entry() string {
	exec := l.Exec
	if exec == "" {
		exec = DefaultExec
	}

	return strings.Join([]string{
		"[Desktop Entry]",
		"Type=Application",
		"Name=Hidamari",
		"Exec=" + exec,
		"StartupNotify=false",
		"Terminal=false",
		"Icon=hidamari",
		"Categories=System;Monitor;",
		"",
	}, "\n")
}

// Enabled reports whether the autostart entry exists.
func (l *Launcher) Enabled() bool {
	info, err := os.Stat(l.Path)
	return err == nil && info.Mode().IsRegular()
}

// Set writes or removes the autostart entry.
func (l *Launcher) Set(enabled bool) error {
	if enabled {
		if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
			return fmt.Errorf("failed to create autostart directory: %w", err)
		}
		if err := os.WriteFile(l.Path, []byte(l.Entry()), 0644); err != nil {
			return fmt.Errorf("failed to write autostart entry: %w", err)
		}
		log.Info().Str("path", l.Path).Msg("Autostart enabled")
		return nil
	}

	if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove autostart entry: %w", err)
	}
	log.Info().Str("path", l.Path).Msg("Autostart disabled")
	return nil
}
