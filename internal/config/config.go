package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// StorageRoot is the directory holding the bucket directories.
	StorageRoot string `toml:"storage_root"`
	// UploadBucket receives source videos and intermediate audio objects.
	UploadBucket string `toml:"upload_bucket"`
	// ProcessedBucket receives transcripts and rendered videos.
	ProcessedBucket string `toml:"processed_bucket"`
	// WorkDir holds per-invocation scratch workspaces.
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Pipeline contains key prefixes and segmentation settings.
type Pipeline struct {
	// AudioPrefix is the reserved key prefix for published audio artifacts.
	// Triggers on keys under it short-circuit to a no-op.
	AudioPrefix string `toml:"audio_prefix"`
	// ProcessedPrefix is where rendered videos land in the processed bucket.
	ProcessedPrefix string `toml:"processed_prefix"`
	// GapThreshold is the silence, in seconds, tolerated within one cue.
	GapThreshold float64 `toml:"gap_threshold"`
}

// Transcribe contains the transcription collaborator settings.
type Transcribe struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Language       string `toml:"language"`
	PollInterval   int    `toml:"poll_interval"`
	Deadline       int    `toml:"deadline"`
	RequestTimeout int    `toml:"request_timeout"`
}

// FFmpeg contains the external encoder settings.
type FFmpeg struct {
	Binary      string `toml:"binary"`
	ProbeBinary string `toml:"probe_binary"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the subtitler.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Transcribe Transcribe `toml:"transcribe"`
	FFmpeg     FFmpeg     `toml:"ffmpeg"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subtitler/config.toml")
}

// SampleConfig returns the annotated sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if os.IsNotExist(err) {
				return expanded, false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, err
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if os.IsNotExist(err) {
			return defaultPath, false, nil
		}
		return "", false, err
	}
	return defaultPath, true, nil
}

// EnsureDirectories creates the directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.StorageRoot,
		filepath.Join(c.Paths.StorageRoot, c.Paths.UploadBucket),
		filepath.Join(c.Paths.StorageRoot, c.Paths.ProcessedBucket),
		c.Paths.WorkDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadBucketDir returns the upload bucket's backing directory.
func (c *Config) UploadBucketDir() string {
	return filepath.Join(c.Paths.StorageRoot, c.Paths.UploadBucket)
}

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.StorageRoot,
		&c.Paths.WorkDir,
		&c.Paths.LogDir,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Paths.UploadBucket = strings.TrimSpace(c.Paths.UploadBucket)
	c.Paths.ProcessedBucket = strings.TrimSpace(c.Paths.ProcessedBucket)
	c.Pipeline.AudioPrefix = normalizePrefix(c.Pipeline.AudioPrefix)
	c.Pipeline.ProcessedPrefix = normalizePrefix(c.Pipeline.ProcessedPrefix)
	c.Transcribe.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcribe.BaseURL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// normalizePrefix trims whitespace and guarantees exactly one trailing slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
