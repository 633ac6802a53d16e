package watcher_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtitler/internal/logging"
	"subtitler/internal/watcher"
)

func startWatcher(t *testing.T, root string) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New("uploads", root, 50*time.Millisecond, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Logf("watcher stopped: %v", err)
		}
	}()
	// Give the watcher a beat to register the tree.
	time.Sleep(50 * time.Millisecond)
	return w
}

func awaitTrigger(t *testing.T, w *watcher.Watcher, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case trigger := <-w.Triggers():
		return trigger.Key, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcherFiresForSettledFile(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "clip.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	key, ok := awaitTrigger(t, w, 3*time.Second)
	if !ok {
		t.Fatal("expected trigger for new file")
	}
	if key != "clip.mp4" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestWatcherDerivesNestedKeys(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "clips"), 0o755); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "clips", "a.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	key, ok := awaitTrigger(t, w, 3*time.Second)
	if !ok {
		t.Fatal("expected trigger for nested file")
	}
	if key != "clips/a.mp4" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestWatcherIgnoresPartialFiles(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "upload.mp4.partial"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	if key, ok := awaitTrigger(t, w, 300*time.Millisecond); ok {
		t.Fatalf("unexpected trigger for partial file: %q", key)
	}
}

func TestWatcherDebouncesWritesInProgress(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	path := filepath.Join(root, "big.mp4")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// Keep the file hot; no trigger should fire while writes continue.
	for i := 0; i < 4; i++ {
		if _, err := file.Write([]byte("chunk")); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	key, ok := awaitTrigger(t, w, 3*time.Second)
	if !ok {
		t.Fatal("expected trigger once writes settled")
	}
	if key != "big.mp4" {
		t.Fatalf("unexpected key %q", key)
	}
	// Exactly one trigger for the whole upload.
	if extra, ok := awaitTrigger(t, w, 200*time.Millisecond); ok {
		t.Fatalf("unexpected second trigger %q", extra)
	}
}
