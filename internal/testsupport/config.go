package testsupport

import (
	"path/filepath"
	"testing"

	"subtitler/internal/config"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory, with polling tightened so pipeline tests finish quickly.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Paths.StorageRoot = filepath.Join(base, "storage")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Transcribe.PollInterval = 1
	cfg.Transcribe.Deadline = 2

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
