package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"subtitler/internal/config"
	"subtitler/internal/logging"
	"subtitler/internal/media/ffprobe"
	"subtitler/internal/pipeline"
	"subtitler/internal/queue"
	"subtitler/internal/services"
	"subtitler/internal/storage"
	"subtitler/internal/testsupport"
	"subtitler/internal/transcribe"
)

const transcriptPayload = `{
  "results": {
    "items": [
      {"type": "pronunciation", "start_time": "0.0", "end_time": "0.4",
       "alternatives": [{"content": "Hi"}]},
      {"type": "pronunciation", "start_time": "2.0", "end_time": "2.3",
       "alternatives": [{"content": "there"}]},
      {"type": "punctuation", "alternatives": [{"content": "."}]}
    ]
  }
}`

// countingStore wraps a Store and counts writes.
type countingStore struct {
	storage.Store
	mu   sync.Mutex
	puts int
}

func (c *countingStore) Put(ctx context.Context, bucket, key, srcPath string) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.Store.Put(ctx, bucket, key, srcPath)
}

// fakeTranscriber completes immediately and points at a transcript object.
type fakeTranscriber struct {
	startErr      error
	failReason    string
	transcriptKey string
	transcriptURI string
	started       []transcribe.StartJobInput
}

func (f *fakeTranscriber) StartJob(ctx context.Context, input transcribe.StartJobInput) error {
	f.started = append(f.started, input)
	return f.startErr
}

func (f *fakeTranscriber) GetJob(ctx context.Context, name string) (transcribe.Job, error) {
	if f.failReason != "" {
		return transcribe.Job{Name: name, Status: transcribe.StatusFailed, FailureReason: f.failReason}, nil
	}
	return transcribe.Job{
		Name:          name,
		Status:        transcribe.StatusCompleted,
		TranscriptKey: f.transcriptKey,
		TranscriptURI: f.transcriptURI,
	}, nil
}

// fakeRunner simulates ffmpeg by writing marker bytes.
type fakeRunner struct {
	extractErr error
	burnErr    error
	probeErr   error
	noAudio    bool
}

func (f *fakeRunner) Probe(ctx context.Context, source string) (ffprobe.Result, error) {
	if f.probeErr != nil {
		return ffprobe.Result{}, f.probeErr
	}
	streams := []ffprobe.Stream{{CodecType: "video", CodecName: "h264"}}
	if !f.noAudio {
		streams = append(streams, ffprobe.Stream{CodecType: "audio", CodecName: "aac", Channels: 2})
	}
	return ffprobe.Result{
		Streams: streams,
		Format:  ffprobe.Format{Duration: "12.5"},
	}, nil
}

func (f *fakeRunner) ExtractAudio(ctx context.Context, source, dest string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

func (f *fakeRunner) BurnSubtitles(ctx context.Context, video, srtPath, dest string) error {
	if f.burnErr != nil {
		return f.burnErr
	}
	if _, err := os.Stat(srtPath); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("mp4-with-subs"), 0o644)
}

type fixture struct {
	cfg    *config.Config
	store  *countingStore
	ledger *queue.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	ledger, err := queue.Open(cfg.Paths.LogDir)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return &fixture{
		cfg:    cfg,
		store:  &countingStore{Store: storage.NewDir(cfg.Paths.StorageRoot)},
		ledger: ledger,
	}
}

func (f *fixture) putObject(t *testing.T, bucket, key, content string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "obj")
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Store.Put(context.Background(), bucket, key, src); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) orchestrator(transcriber transcribe.Client, runner pipeline.MediaRunner) *pipeline.Orchestrator {
	return pipeline.New(f.cfg, f.store, transcriber, runner, f.ledger, logging.NewNop())
}

func assertWorkspaceClean(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("residual artifacts in work dir: %v", entries)
	}
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "clips/talk.mp4", "video-bytes")
	f.putObject(t, "processed", "result.json", transcriptPayload)

	transcriber := &fakeTranscriber{transcriptKey: "result.json"}
	orch := f.orchestrator(transcriber, &fakeRunner{})

	result, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "clips/talk.mp4"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Skipped {
		t.Fatal("unexpected skip")
	}
	if result.DestinationKey != "processed/talk.mp4" {
		t.Fatalf("unexpected destination key %q", result.DestinationKey)
	}
	if result.CueCount != 2 {
		t.Fatalf("unexpected cue count %d", result.CueCount)
	}

	if _, err := f.store.Size(context.Background(), "processed", result.DestinationKey); err != nil {
		t.Fatalf("rendered object missing: %v", err)
	}
	assertWorkspaceClean(t, f.cfg)

	if len(transcriber.started) != 1 {
		t.Fatalf("expected one transcription job, got %d", len(transcriber.started))
	}
	started := transcriber.started[0]
	if !strings.HasPrefix(started.AudioURI, "storage://uploads/audio/") {
		t.Fatalf("audio not published under reserved prefix: %q", started.AudioURI)
	}
	if started.MediaFormat != "wav" || started.LanguageCode != "en-US" {
		t.Fatalf("unexpected job input: %#v", started)
	}

	record, err := f.ledger.Get(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if record.Status != queue.StatusCompleted || record.DestinationKey != result.DestinationKey {
		t.Fatalf("unexpected ledger record: %#v", record)
	}
}

func TestProcessAudioPrefixIsNoOp(t *testing.T) {
	f := newFixture(t)

	orch := f.orchestrator(&fakeTranscriber{}, &fakeRunner{})
	result, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "audio/abc.wav"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected skipped result")
	}
	if f.store.puts != 0 {
		t.Fatalf("no-op trigger performed %d storage writes", f.store.puts)
	}
	assertWorkspaceClean(t, f.cfg)

	record, err := f.ledger.Get(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if record.Status != queue.StatusSkipped {
		t.Fatalf("unexpected record status %q", record.Status)
	}
}

func TestProcessMissingSource(t *testing.T) {
	f := newFixture(t)
	orch := f.orchestrator(&fakeTranscriber{}, &fakeRunner{})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "absent.mp4"})
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
	assertWorkspaceClean(t, f.cfg)
}

func TestProcessZeroLengthSource(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "empty.mp4", "")
	orch := f.orchestrator(&fakeTranscriber{}, &fakeRunner{})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "empty.mp4"})
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
}

func TestProcessRejectsSourceWithoutAudioStream(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "silent.mp4", "video-bytes")
	orch := f.orchestrator(&fakeTranscriber{}, &fakeRunner{noAudio: true})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "silent.mp4"})
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "no audio stream") {
		t.Fatalf("expected audio stream detail, got %v", err)
	}
	if f.store.puts != 0 {
		t.Fatalf("rejected run should not publish, saw %d writes", f.store.puts)
	}
}

func TestProcessExtractionFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	orch := f.orchestrator(&fakeTranscriber{}, &fakeRunner{extractErr: errors.New("exit status 1")})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
	assertWorkspaceClean(t, f.cfg)
	if f.store.puts != 0 {
		t.Fatalf("failed run should not publish, saw %d writes", f.store.puts)
	}

	jobs, err := f.ledger.List(context.Background(), 0)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected one ledger record, got %d (%v)", len(jobs), err)
	}
	if jobs[0].Status != queue.StatusFailed || jobs[0].Stage != "extract" {
		t.Fatalf("unexpected failure record: %#v", jobs[0])
	}
}

func TestProcessTranscriptionStartRejected(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	orch := f.orchestrator(&fakeTranscriber{startErr: errors.New("name in use")}, &fakeRunner{})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if !errors.Is(err, services.ErrTranscriptionStart) {
		t.Fatalf("expected TranscriptionStartFailed, got %v", err)
	}
	assertWorkspaceClean(t, f.cfg)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	orch := f.orchestrator(&fakeTranscriber{failReason: "audio unreadable"}, &fakeRunner{})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected TranscriptionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "audio unreadable") {
		t.Fatalf("failure reason missing: %v", err)
	}
	assertWorkspaceClean(t, f.cfg)
}

func TestProcessMalformedTranscript(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	f.putObject(t, "processed", "result.json", `{"results": {`)
	orch := f.orchestrator(&fakeTranscriber{transcriptKey: "result.json"}, &fakeRunner{})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if !errors.Is(err, services.ErrTranscriptUnavailable) {
		t.Fatalf("expected TranscriptUnavailable, got %v", err)
	}
	assertWorkspaceClean(t, f.cfg)
}

func TestProcessMissingTranscriptObject(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	orch := f.orchestrator(&fakeTranscriber{transcriptKey: "never-written.json"}, &fakeRunner{})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if !errors.Is(err, services.ErrTranscriptUnavailable) {
		t.Fatalf("expected TranscriptUnavailable, got %v", err)
	}
}

func TestProcessTranscriptFromURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(transcriptPayload))
	}))
	defer server.Close()

	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	orch := f.orchestrator(&fakeTranscriber{transcriptURI: server.URL + "/result.json"}, &fakeRunner{})

	result, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.CueCount != 2 {
		t.Fatalf("unexpected cue count %d", result.CueCount)
	}
}

func TestProcessRenderFailureDoesNotPublish(t *testing.T) {
	f := newFixture(t)
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	f.putObject(t, "processed", "result.json", transcriptPayload)
	orch := f.orchestrator(&fakeTranscriber{transcriptKey: "result.json"}, &fakeRunner{burnErr: errors.New("exit status 1")})

	_, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected RenderFailed, got %v", err)
	}
	if _, sizeErr := f.store.Size(context.Background(), "processed", "processed/talk.mp4"); sizeErr == nil {
		t.Fatal("destination object must not exist after render failure")
	}
	assertWorkspaceClean(t, f.cfg)
}

func TestProcessRejectsEmptyTrigger(t *testing.T) {
	f := newFixture(t)
	orch := f.orchestrator(&fakeTranscriber{}, &fakeRunner{})
	if _, err := orch.Process(context.Background(), pipeline.Trigger{}); err == nil {
		t.Fatal("expected error for empty trigger")
	}
}

func TestProcessWithoutLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &countingStore{Store: storage.NewDir(cfg.Paths.StorageRoot)}
	f := &fixture{cfg: cfg, store: store}
	f.putObject(t, "uploads", "talk.mp4", "video-bytes")
	f.putObject(t, "processed", "result.json", transcriptPayload)

	orch := pipeline.New(cfg, store, &fakeTranscriber{transcriptKey: "result.json"}, &fakeRunner{}, nil, logging.NewNop())
	result, err := orch.Process(context.Background(), pipeline.Trigger{Bucket: "uploads", Key: "talk.mp4"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.DestinationKey != "processed/talk.mp4" {
		t.Fatalf("unexpected destination %q", result.DestinationKey)
	}
}
