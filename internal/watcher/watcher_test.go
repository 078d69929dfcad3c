package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runWatcher starts a watcher with a short debounce, waits until the
// directory watch is installed and returns a channel that receives one
// value per refresh.
func runWatcher(t *testing.T, dir string) <-chan struct{} {
	t.Helper()

	refreshed := make(chan struct{}, 16)
	w := New(dir, func(_ context.Context) error {
		refreshed <- struct{}{}
		return nil
	})
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop after cancel")
		}
	})

	// Mutating the directory before the watch is installed would race
	// the setup and miss the events.
	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("watcher stopped before watching: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never became ready")
	}

	return refreshed
}

func awaitRefresh(t *testing.T, refreshed <-chan struct{}) {
	t.Helper()
	select {
	case <-refreshed:
	case <-time.After(3 * time.Second):
		t.Fatal("no refresh observed")
	}
}

func TestWatcher_RefreshOnCreate(t *testing.T) {
	dir := t.TempDir()
	refreshed := runWatcher(t, dir)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "weather_plugin"), 0700))
	awaitRefresh(t, refreshed)
}

func TestWatcher_RefreshOnRemove(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "weather_plugin")
	require.NoError(t, os.Mkdir(folder, 0700))

	refreshed := runWatcher(t, dir)

	require.NoError(t, os.Remove(folder))
	awaitRefresh(t, refreshed)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	refreshed := runWatcher(t, dir)

	// An unpacking archive writes many files in quick succession.
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "file"+string(rune('a'+i))+".go")
		require.NoError(t, os.WriteFile(name, []byte("package p\n"), 0600))
	}

	awaitRefresh(t, refreshed)

	// The burst settled into a small number of refreshes, not one per event.
	count := 1
	timeout := time.After(500 * time.Millisecond)
	for {
		select {
		case <-refreshed:
			count++
		case <-timeout:
			require.Less(t, count, 5, "burst was not debounced")
			return
		}
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "does-not-exist"), func(_ context.Context) error {
		return nil
	})
	require.Error(t, w.Run(context.Background()))
}
