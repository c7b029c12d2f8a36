package player

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePids(t *testing.T) {
	got, err := parsePids("4120 88\n")
	require.NoError(t, err)
	assert.Equal(t, []int{4120, 88}, got)

	got, err = parsePids("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parsePids("12 abc")
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	p := New()
	assert.Equal(t, "hidamari", p.Name)
	assert.Equal(t, []string{"hidamari"}, p.Command)
	assert.True(t, p.DiscardLogs)

	p = New("/usr/bin/hidamari", "-p", "1")
	assert.Equal(t, "/usr/bin/hidamari", p.Name)
}

func TestStartDetached(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "started")
	p := &Player{Name: "sh", Command: []string{"sh", "-c", "touch " + marker}, DiscardLogs: true}

	pid, err := p.Start()
	require.NoError(t, err)
	assert.Positive(t, pid)

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartWithoutCommand(t *testing.T) {
	_, err := (&Player{}).Start()
	assert.Error(t, err)

	_, err = (&Player{Command: []string{"hidamari-no-such-binary"}}).Start()
	assert.Error(t, err)
}
