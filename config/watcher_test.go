package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T) (*Store, chan Config, *atomic.Int32) {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "hidamari.toml"))
	require.NoError(t, err)

	changes := make(chan Config, 8)
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	w, err := store.WatchWithDebounce(ctx, 50*time.Millisecond, func(c Config) {
		calls.Add(1)
		changes <- c
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	return store, changes, &calls
}

func TestWatcherReloadsOnceOnExternalChange(t *testing.T) {
	store, changes, calls := startWatcher(t)

	// several writes in a burst, like an editor saving
	content := []byte("mute_audio = true\naudio_volume = 0.3\n")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(store.Path(), content, 0644))
	}

	select {
	case cfg := <-changes:
		assert.True(t, cfg.MuteAudio)
		assert.Equal(t, 0.3, cfg.AudioVolume)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after external modification")
	}

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, store.Config().MuteAudio)
}

func TestWatcherSeesUncleanConfigPath(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir + "//./hidamari.toml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hidamari.toml"), store.Path())

	changes := make(chan Config, 8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w, err := store.WatchWithDebounce(ctx, 50*time.Millisecond, func(c Config) { changes <- c })
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hidamari.toml"), []byte("mute_audio = true\n"), 0644))

	select {
	case cfg := <-changes:
		assert.True(t, cfg.MuteAudio)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload for a config path given with redundant separators")
	}
}

func TestWatcherIgnoresOwnSave(t *testing.T) {
	store, _, calls := startWatcher(t)

	require.NoError(t, store.Update(func(c *Config) {
		c.StaticWallpaper = true
	}))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	store, _, calls := startWatcher(t)

	other := filepath.Join(filepath.Dir(store.Path()), "other.toml")
	require.NoError(t, os.WriteFile(other, []byte("mute_audio = true\n"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherStopsOnCancel(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "hidamari.toml"))
	require.NoError(t, err)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	w, err := store.WatchWithDebounce(ctx, 20*time.Millisecond, func(Config) { calls.Add(1) })
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case <-w.done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(store.Path(), []byte("mute_audio = true\n"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.NoError(t, w.Close())
}
