package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"subtitler/internal/media/ffprobe"
)

// FFmpegCommand is the default binary name resolved from PATH.
const FFmpegCommand = "ffmpeg"

// Runner invokes ffmpeg for audio extraction and subtitle burn-in. A custom
// command runner can be injected for tests.
type Runner struct {
	binary        string
	prober        *ffprobe.Prober
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewRunner creates an ffmpeg runner using the given binary path.
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = FFmpegCommand
	}
	return &Runner{binary: binary, prober: ffprobe.NewProber("")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Runner) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	r.commandRunner = runner
}

// WithProber replaces the container prober, for a non-default ffprobe binary.
func (r *Runner) WithProber(prober *ffprobe.Prober) {
	if prober != nil {
		r.prober = prober
	}
}

// Probe inspects the container at source.
func (r *Runner) Probe(ctx context.Context, source string) (ffprobe.Result, error) {
	return r.prober.Inspect(ctx, source)
}

// ExtractAudio extracts the audio track of source into dest as mono 16kHz
// signed 16-bit PCM WAV. The output file is verified to exist and be
// non-empty; ffmpeg can exit zero while writing nothing when the source has
// no audio stream.
func (r *Runner) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := r.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	if err := verifyOutput(dest); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// BurnSubtitles overlays the SRT file onto the video, copying the audio
// stream unchanged, and verifies the rendered output.
func (r *Runner) BurnSubtitles(ctx context.Context, video, srtPath, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", video,
		"-vf", "subtitles=" + escapeFilterPath(srtPath),
		"-c:a", "copy",
		dest,
	}
	if err := r.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg burn: %w", err)
	}
	if err := verifyOutput(dest); err != nil {
		return fmt.Errorf("ffmpeg burn: %w", err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, args []string) error {
	if r.commandRunner != nil {
		return r.commandRunner(ctx, r.binary, args...)
	}
	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", r.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// verifyOutput rejects missing or zero-length results regardless of exit code.
func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output %s missing", path)
		}
		return fmt.Errorf("stat output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output %s is empty", path)
	}
	return nil
}

// escapeFilterPath quotes characters that the ffmpeg filter graph parser
// treats specially inside the subtitles= argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return replacer.Replace(path)
}
