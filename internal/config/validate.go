package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.StorageRoot) == "" {
		problems = append(problems, "paths.storage_root is required")
	}
	if c.Paths.UploadBucket == "" {
		problems = append(problems, "paths.upload_bucket is required")
	}
	if c.Paths.ProcessedBucket == "" {
		problems = append(problems, "paths.processed_bucket is required")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir is required")
	}
	if c.Pipeline.AudioPrefix == "" {
		problems = append(problems, "pipeline.audio_prefix is required")
	}
	if c.Pipeline.GapThreshold <= 0 {
		problems = append(problems, "pipeline.gap_threshold must be positive")
	}
	if c.Transcribe.BaseURL == "" {
		problems = append(problems, "transcribe.base_url is required")
	}
	if c.Transcribe.PollInterval <= 0 {
		problems = append(problems, "transcribe.poll_interval must be positive")
	}
	if c.Transcribe.Deadline <= 0 {
		problems = append(problems, "transcribe.deadline must be positive")
	}
	if c.Transcribe.Deadline < c.Transcribe.PollInterval {
		problems = append(problems, "transcribe.deadline must be at least the poll interval")
	}
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		problems = append(problems, "ffmpeg.binary is required")
	}
	if strings.TrimSpace(c.FFmpeg.ProbeBinary) == "" {
		problems = append(problems, "ffmpeg.probe_binary is required")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
