package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subtitler/internal/daemon"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the upload bucket and subtitle each new video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}
			ledger, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			orch := ctx.buildOrchestrator(cfg, ledger, logger)
			d, err := daemon.New(cfg, orch, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return d.Run(runCtx)
		},
	}
}
