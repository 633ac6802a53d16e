package config

// Default returns the repository defaults applied before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageRoot:     "~/.local/share/subtitler/storage",
			UploadBucket:    "uploads",
			ProcessedBucket: "processed",
			WorkDir:         "~/.local/share/subtitler/work",
			LogDir:          "~/.local/share/subtitler/logs",
		},
		Pipeline: Pipeline{
			AudioPrefix:     "audio/",
			ProcessedPrefix: "processed/",
			GapThreshold:    1.0,
		},
		Transcribe: Transcribe{
			BaseURL:        "http://127.0.0.1:8765",
			Language:       "en-US",
			PollInterval:   5,
			Deadline:       600,
			RequestTimeout: 30,
		},
		FFmpeg: FFmpeg{
			Binary:      "ffmpeg",
			ProbeBinary: "ffprobe",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
