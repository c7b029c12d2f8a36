package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b-ocean.MP4"))
	touch(t, filepath.Join(dir, "A-forest.webm"))
	touch(t, filepath.Join(dir, "still.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".hidden.mp4"))
	touch(t, filepath.Join(dir, ".thumbnails", "b-ocean.MP4.png"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.mp4"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(dir, "still.jpg"), filepath.Join(dir, "link.png")))

	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "A-forest.webm"),
		filepath.Join(dir, "b-ocean.MP4"),
		filepath.Join(dir, "link.png"),
		filepath.Join(dir, "still.jpg"),
	}, files)
}

func TestScanMissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	assert.True(t, IsVideo("/a/b.MKV"))
	assert.False(t, IsVideo("/a/b.png"))
	assert.True(t, IsImage("x.JPEG"))
	assert.False(t, IsImage("x"))
}
