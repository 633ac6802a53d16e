package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtitler/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "process <key>",
		Short: "Run the subtitle pipeline for one uploaded object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
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

			if bucket == "" {
				bucket = cfg.Paths.UploadBucket
			}
			orch := ctx.buildOrchestrator(cfg, ledger, logger)
			result, err := orch.Process(cmd.Context(), pipeline.Trigger{Bucket: bucket, Key: args[0]})
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s is a reserved audio artifact\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s (%d cues)\n", result.DestinationKey, result.CueCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Source bucket (defaults to the configured upload bucket)")
	return cmd
}
