package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspace is the per-invocation scratch directory. Every transient artifact
// (downloaded video, extracted audio, transcript, SRT, rendered output) lives
// inside it, so a single deferred Cleanup releases everything on every exit
// path.
type workspace struct {
	dir string
}

func newWorkspace(workRoot string) (*workspace, error) {
	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work directory: %w", err)
	}
	dir, err := os.MkdirTemp(workRoot, "job-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) sourceVideo(ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return w.path("source" + ext)
}

func (w *workspace) audio() string      { return w.path("audio.wav") }
func (w *workspace) transcript() string { return w.path("transcript.json") }
func (w *workspace) subtitles() string  { return w.path("subtitles.srt") }
func (w *workspace) rendered(ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return w.path("rendered" + ext)
}

// Cleanup removes the workspace and everything in it.
func (w *workspace) Cleanup() {
	if w == nil || w.dir == "" {
		return
	}
	_ = os.RemoveAll(w.dir)
}
