package main

import (
	"fmt"
	"log/slog"
	"time"

	"subtitler/internal/config"
	"subtitler/internal/logging"
	"subtitler/internal/media"
	"subtitler/internal/media/ffprobe"
	"subtitler/internal/pipeline"
	"subtitler/internal/queue"
	"subtitler/internal/storage"
	"subtitler/internal/transcribe"
)

// commandContext lazily builds the pieces commands share.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
}

func (c *commandContext) openLedger(cfg *config.Config) (*queue.Store, error) {
	store, err := queue.Open(cfg.Paths.LogDir)
	if err != nil {
		return nil, fmt.Errorf("open job ledger: %w", err)
	}
	return store, nil
}

// buildOrchestrator wires the concrete collaborators into a pipeline.
func (c *commandContext) buildOrchestrator(cfg *config.Config, ledger *queue.Store, logger *slog.Logger) *pipeline.Orchestrator {
	store := storage.NewDir(cfg.Paths.StorageRoot)
	transcriber := transcribe.NewHTTPClient(
		cfg.Transcribe.BaseURL,
		cfg.Transcribe.APIKey,
		time.Duration(cfg.Transcribe.RequestTimeout)*time.Second,
	)
	runner := media.NewRunner(cfg.FFmpeg.Binary)
	runner.WithProber(ffprobe.NewProber(cfg.FFmpeg.ProbeBinary))
	return pipeline.New(cfg, store, transcriber, runner, ledger, logger)
}
