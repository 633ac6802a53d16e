package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"subtitler/internal/logging"
	"subtitler/internal/pipeline"
)

// DefaultSettleDelay is how long a file must stay quiet before its upload is
// considered finished and a trigger fires.
const DefaultSettleDelay = 2 * time.Second

// Watcher turns filesystem activity in the upload bucket directory into
// pipeline triggers, one per settled new object. Writes are debounced so a
// large upload in progress does not fire early.
type Watcher struct {
	bucket      string
	root        string
	settleDelay time.Duration
	logger      *slog.Logger

	fsw      *fsnotify.Watcher
	triggers chan pipeline.Trigger

	mu      sync.Mutex
	pending map[string]time.Time
}

// New constructs a watcher for the bucket backed by root.
func New(bucket, root string, settleDelay time.Duration, logger *slog.Logger) (*Watcher, error) {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		bucket:      bucket,
		root:        root,
		settleDelay: settleDelay,
		logger:      logging.NewComponentLogger(logger, "watcher"),
		fsw:         fsw,
		triggers:    make(chan pipeline.Trigger, 64),
		pending:     map[string]time.Time{},
	}, nil
}

// Triggers returns the channel of settled upload events. It is closed when
// the watcher stops.
func (w *Watcher) Triggers() <-chan pipeline.Trigger {
	return w.triggers
}

// Start begins watching and blocks until ctx is cancelled or the underlying
// watcher fails.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching upload bucket",
		logging.String("bucket", w.bucket),
		logging.String("dir", w.root))

	ticker := time.NewTicker(w.settleDelay / 2)
	defer ticker.Stop()
	defer close(w.triggers)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch event stream closed")
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch error stream closed")
			}
			w.logger.Warn("watch error", logging.Error(err))
		case now := <-ticker.C:
			w.fireSettled(ctx, now)
		}
	}
}

// addTree registers root and all existing subdirectories; fsnotify does not
// recurse on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					logging.String("dir", event.Name), logging.Error(err))
			}
		}
		return
	}
	// Storage puts go through a .partial temp name and rename; only the
	// final name is an object.
	if strings.HasSuffix(event.Name, ".partial") {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) fireSettled(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settleDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		key, err := w.keyFor(path)
		if err != nil {
			w.logger.Warn("cannot derive object key",
				logging.String("path", path), logging.Error(err))
			continue
		}
		select {
		case w.triggers <- pipeline.Trigger{Bucket: w.bucket, Key: key}:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) keyFor(path string) (string, error) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
