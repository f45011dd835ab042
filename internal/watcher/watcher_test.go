package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(target, []byte(`{}`), 0600))

	changes := make(chan fsnotify.Op, 4)
	w, err := New(target, func(op fsnotify.Op) { changes <- op })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(target, []byte(`{"NOTEKEEPER_LOG_LEVEL":"debug"}`), 0600))

	select {
	case op := <-changes:
		assert.NotZero(t, op)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(target, []byte(`{}`), 0600))

	var calls atomic.Int32
	w, err := New(target, func(fsnotify.Op) { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notekeeper.db"), []byte("x"), 0600))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(target, []byte(`{}`), 0600))

	var calls atomic.Int32
	w, err := New(target, func(fsnotify.Op) { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(300 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte(`{"n":1}`), 0600))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStartMissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "gone", "settings.json"), nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}

func TestStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "settings.json"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
