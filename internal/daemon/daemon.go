package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"subtitler/internal/config"
	"subtitler/internal/logging"
	"subtitler/internal/pipeline"
	"subtitler/internal/watcher"
)

// Daemon watches the upload bucket and runs the pipeline for each settled
// upload, enforcing single-instance execution with a file lock.
type Daemon struct {
	cfg    *config.Config
	orch   *pipeline.Orchestrator
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
}

// New constructs a daemon around an orchestrator.
func New(cfg *config.Config, orch *pipeline.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || orch == nil {
		return nil, errors.New("daemon requires config and orchestrator")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "subtitler.lock")
	return &Daemon{
		cfg:      cfg,
		orch:     orch,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Run blocks until ctx is cancelled, processing each trigger in its own
// goroutine. Invocations are independent; artifact names are
// per-invocation-unique so concurrent runs never interact.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subtitler daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	w, err := watcher.New(d.cfg.Paths.UploadBucket, d.cfg.UploadBucketDir(), watcher.DefaultSettleDelay, d.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Start(watchCtx)
	}()

	d.logger.Info("subtitler daemon started", logging.String("lock", d.lockPath))

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			cancel()
			wg.Wait()
			<-watchDone
			d.logger.Info("subtitler daemon stopped")
			return ctx.Err()
		case err := <-watchDone:
			wg.Wait()
			return fmt.Errorf("watcher stopped: %w", err)
		case trigger, ok := <-w.Triggers():
			if !ok {
				continue
			}
			wg.Add(1)
			go func(trigger pipeline.Trigger) {
				defer wg.Done()
				d.process(ctx, trigger)
			}(trigger)
		}
	}
}

func (d *Daemon) process(ctx context.Context, trigger pipeline.Trigger) {
	result, err := d.orch.Process(ctx, trigger)
	switch {
	case err != nil:
		d.logger.Error("pipeline failed",
			logging.String("key", trigger.Key),
			logging.Error(err))
	case result.Skipped:
		// Audio artifact writes re-trigger the watcher; nothing to do.
	default:
		d.logger.Info("pipeline completed",
			logging.String("key", trigger.Key),
			logging.String("destination", result.DestinationKey),
			logging.Int("cues", result.CueCount))
	}
}
