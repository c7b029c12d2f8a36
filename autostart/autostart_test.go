package autostart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLeavesNoFile(t *testing.T) {
	l := &Launcher{Path: filepath.Join(t.TempDir(), "autostart", FileName)}
	assert.False(t, l.Enabled())

	require.NoError(t, l.Set(true))
	assert.True(t, l.Enabled())

	content, err := os.ReadFile(l.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[Desktop Entry]")
	assert.Contains(t, string(content), "Exec="+DefaultExec)

	require.NoError(t, l.Set(false))
	assert.False(t, l.Enabled())
	assert.NoFileExists(t, l.Path)
}

func TestDisableWhenMissing(t *testing.T) {
	l := &Launcher{Path: filepath.Join(t.TempDir(), FileName)}
	assert.NoError(t, l.Set(false))
}

func TestEnableTwiceRewrites(t *testing.T) {
	l := &Launcher{Path: filepath.Join(t.TempDir(), FileName), Exec: "hidamari --start"}
	require.NoError(t, l.Set(true))
	require.NoError(t, l.Set(true))

	content, err := os.ReadFile(l.Path)
	require.NoError(t, err)
	assert.Equal(t, l.Entry(), string(content))
	assert.Contains(t, string(content), "Exec=hidamari --start\n")
}

func TestDirectoryIsNotEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.Mkdir(path, 0755))
	l := &Launcher{Path: path}
	assert.False(t, l.Enabled())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/autostart/hidamari.desktop", DefaultPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/someone")
	assert.Equal(t, "/home/someone/.config/autostart/hidamari.desktop", New().Path)
}
