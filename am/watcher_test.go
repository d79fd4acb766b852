package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/taxa/errors"
)

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/etc/taxa/am.toml.back1"))
	assert.True(t, isBackupFile("config.toml.back3"))
	assert.False(t, isBackupFile("am.toml"))
	assert.False(t, isBackupFile("am.toml.backup"))
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "am.toml")
	writeFile(t, path, "[server]\nrequests_per_second = 5.0\nburst = 5\n")

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	defer cw.Stop()
	cw.debouncePeriod = 10 * time.Millisecond

	reloaded := make(chan *Config, 1)
	cw.OnReload(func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})
	cw.Start()

	require.NoError(t, os.WriteFile(path, []byte("[server]\nrequests_per_second = 20.0\nburst = 40\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 20.0, cfg.Server.RequestsPerSecond)
		assert.Equal(t, 40, cfg.Server.Burst)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestConfigWatcher_IgnoresOwnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "am.toml")
	require.NoError(t, Save(Default(), path))

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	defer cw.Stop()

	cw.MarkOwnWrite()
	assert.True(t, cw.checkOwnWrite())
	assert.False(t, cw.checkOwnWrite())
}

func TestNewConfigWatcher_MissingFile(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConfigWatcher_CallbackErrors(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "am.toml")
	writeFile(t, path, "[server]\nburst = 7\n")

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	defer cw.Stop()

	var seen []int
	cw.OnReload(func(cfg *Config) error { return errors.New("rejected") })
	cw.OnReload(func(cfg *Config) error {
		seen = append(seen, cfg.Server.Burst)
		return nil
	})

	err = cw.reload()
	assert.ErrorContains(t, err, "rejected")
	assert.Equal(t, []int{7}, seen, "later callbacks run after an earlier one fails")
}

func TestConfigWatcher_HandleFiltersEvents(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "am.toml")
	writeFile(t, path, "")

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	defer cw.Stop()
	cw.debouncePeriod = time.Hour

	cw.handle(fsnotify.Event{Name: path + ".back1", Op: fsnotify.Write})
	cw.handle(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	assert.Nil(t, cw.pending)

	cw.MarkOwnWrite()
	cw.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Nil(t, cw.pending, "write after MarkOwnWrite is skipped")

	cw.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	require.NotNil(t, cw.pending)
	cw.pending.Stop()
}

func TestSave_MarksRegisteredWatcher(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "am.toml")
	require.NoError(t, Save(Default(), path))

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	SetGlobalWatcher(cw)

	require.NoError(t, Save(Default(), path))
	assert.True(t, cw.checkOwnWrite())

	require.NoError(t, cw.Stop())
	require.NoError(t, Save(Default(), path))
	assert.False(t, cw.checkOwnWrite(), "stopped watcher is no longer notified")
}
