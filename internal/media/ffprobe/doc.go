// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The pipeline probes each uploaded video before extraction so that
// containers without an audio stream are rejected with a clear error
// instead of a confusing encoder failure.
package ffprobe
