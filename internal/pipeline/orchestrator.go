package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"subtitler/internal/config"
	"subtitler/internal/fileutil"
	"subtitler/internal/logging"
	"subtitler/internal/media/ffprobe"
	"subtitler/internal/queue"
	"subtitler/internal/services"
	"subtitler/internal/srt"
	"subtitler/internal/storage"
	"subtitler/internal/transcribe"
)

// Trigger identifies one uploaded object.
type Trigger struct {
	Bucket string
	Key    string
}

// Result is the structured success outcome of one invocation.
type Result struct {
	JobID          string
	Skipped        bool
	DestinationKey string
	CueCount       int
}

// MediaRunner is the external encoder boundary.
type MediaRunner interface {
	Probe(ctx context.Context, source string) (ffprobe.Result, error)
	ExtractAudio(ctx context.Context, source, dest string) error
	BurnSubtitles(ctx context.Context, video, srtPath, dest string) error
}

// Orchestrator drives one video through the full subtitle pipeline. All
// collaborators are injected so tests can substitute doubles.
type Orchestrator struct {
	cfg         *config.Config
	store       storage.Store
	transcriber transcribe.Client
	runner      MediaRunner
	ledger      *queue.Store
	logger      *slog.Logger
	httpc       *http.Client
}

// New constructs an orchestrator. The ledger may be nil, in which case no job
// records are written.
func New(cfg *config.Config, store storage.Store, transcriber transcribe.Client, runner MediaRunner, ledger *queue.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		transcriber: transcriber,
		runner:      runner,
		ledger:      ledger,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		httpc:       &http.Client{Timeout: time.Duration(cfg.Transcribe.RequestTimeout) * time.Second},
	}
}

// Process runs the stage sequence for one triggering object. Every transient
// artifact is removed before Process returns, on success and on every
// failure path alike.
func (o *Orchestrator) Process(ctx context.Context, trigger Trigger) (Result, error) {
	key := strings.Trim(strings.TrimSpace(trigger.Key), "/")
	if trigger.Bucket == "" || key == "" {
		return Result{}, services.Wrap(services.ErrValidation, "trigger", "", "bucket and key are required", nil)
	}
	ctx = services.WithObjectKey(ctx, key)

	// Published audio artifacts land in the same bucket the trigger watches;
	// without this guard stage 3 would re-trigger the pipeline on itself.
	if strings.HasPrefix(key, o.cfg.Pipeline.AudioPrefix) {
		logging.WithContext(ctx, o.logger).Info("ignoring audio artifact trigger",
			logging.String(logging.FieldEventType, "trigger_skipped"))
		result := Result{Skipped: true}
		if record, err := o.newRecord(ctx, trigger.Bucket, key); err == nil && record != nil {
			record.Status = queue.StatusSkipped
			o.updateRecord(ctx, record)
			result.JobID = record.ID
		}
		return result, nil
	}

	record, err := o.newRecord(ctx, trigger.Bucket, key)
	if err != nil {
		return Result{}, err
	}
	if record != nil {
		ctx = services.WithJobID(ctx, record.ID)
	}

	ws, err := newWorkspace(o.cfg.Paths.WorkDir)
	if err != nil {
		return Result{}, o.fail(ctx, record, services.Wrap(services.ErrConfiguration, "workspace", "create", "", err))
	}
	defer ws.Cleanup()

	result, err := o.run(ctx, record, ws, trigger.Bucket, key)
	if err != nil {
		return Result{}, o.fail(ctx, record, err)
	}

	if record != nil {
		record.Status = queue.StatusCompleted
		record.DestinationKey = result.DestinationKey
		o.updateRecord(ctx, record)
		result.JobID = record.ID
	}
	return result, nil
}

// run executes stages 1-9 inside the workspace.
func (o *Orchestrator) run(ctx context.Context, record *queue.Job, ws *workspace, bucket, key string) (Result, error) {
	logger := logging.WithContext(ctx, o.logger)
	ext := path.Ext(key)

	// Stage 1: fetch source video.
	videoPath := ws.sourceVideo(ext)
	if err := o.stage(ctx, record, "fetch", func(ctx context.Context) error {
		if err := o.store.Get(ctx, bucket, key, videoPath); err != nil {
			return services.Wrap(services.ErrSourceUnavailable, "fetch", "get", fmt.Sprintf("%s/%s", bucket, key), err)
		}
		size, err := fileutil.FileSize(videoPath)
		if err != nil {
			return services.Wrap(services.ErrSourceUnavailable, "fetch", "stat", "", err)
		}
		if size == 0 {
			return services.Wrap(services.ErrSourceUnavailable, "fetch", "verify", "source object is empty", nil)
		}
		probe, err := o.runner.Probe(ctx, videoPath)
		if err != nil {
			return services.Wrap(services.ErrSourceUnavailable, "fetch", "probe", "", err)
		}
		if !probe.HasAudio() {
			return services.Wrap(services.ErrSourceUnavailable, "fetch", "probe", "source has no audio stream", nil)
		}
		logger.Info("source probed",
			logging.String(logging.FieldEventType, "source_probed"),
			logging.Int64("size_bytes", size),
			logging.Float64("duration_seconds", probe.DurationSeconds()))
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 2: extract audio.
	if err := o.stage(ctx, record, "extract", func(ctx context.Context) error {
		if err := o.runner.ExtractAudio(ctx, videoPath, ws.audio()); err != nil {
			return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", "", err)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 3: publish audio under a collision-free reserved key.
	audioKey := o.cfg.Pipeline.AudioPrefix + uuid.NewString() + ".wav"
	if err := o.stage(ctx, record, "publish-audio", func(ctx context.Context) error {
		if err := o.store.Put(ctx, bucket, audioKey, ws.audio()); err != nil {
			return services.Wrap(services.ErrPublish, "publish-audio", "put", audioKey, err)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 4: start the transcription job.
	jobName := transcribe.SanitizeJobName("subtitle-" + recordID(record, key))
	if record != nil {
		record.TranscribeName = jobName
	}
	if err := o.stage(ctx, record, "transcribe-start", func(ctx context.Context) error {
		input := transcribe.StartJobInput{
			Name:         jobName,
			AudioURI:     fmt.Sprintf("storage://%s/%s", bucket, audioKey),
			MediaFormat:  "wav",
			LanguageCode: o.cfg.Transcribe.Language,
			OutputBucket: o.cfg.Paths.ProcessedBucket,
		}
		if err := o.transcriber.StartJob(ctx, input); err != nil {
			return services.Wrap(services.ErrTranscriptionStart, "transcribe-start", "start", jobName, err)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 5: await completion with a bounded deadline.
	var job transcribe.Job
	if err := o.stage(ctx, record, "transcribe-await", func(ctx context.Context) error {
		deadline := time.Duration(o.cfg.Transcribe.Deadline) * time.Second
		interval := time.Duration(o.cfg.Transcribe.PollInterval) * time.Second
		completed, err := transcribe.AwaitCompletion(ctx, o.transcriber, jobName, deadline, interval)
		if err != nil {
			return err
		}
		job = completed
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 6: fetch and decode the transcript.
	var items []srt.Item
	if err := o.stage(ctx, record, "transcript-fetch", func(ctx context.Context) error {
		if err := o.fetchTranscript(ctx, job, jobName, ws.transcript()); err != nil {
			return services.Wrap(services.ErrTranscriptUnavailable, "transcript-fetch", "get", "", err)
		}
		data, err := os.ReadFile(ws.transcript())
		if err != nil {
			return services.Wrap(services.ErrTranscriptUnavailable, "transcript-fetch", "read", "", err)
		}
		parsed, err := transcribe.ParseDocument(data)
		if err != nil {
			return services.Wrap(services.ErrTranscriptUnavailable, "transcript-fetch", "decode", "", err)
		}
		items = parsed
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 7: segment and render subtitles. Pure; cannot fail for decoded
	// input, so only the file write is checked.
	cues := srt.Segment(items, o.cfg.Pipeline.GapThreshold)
	if err := o.stage(ctx, record, "segment", func(ctx context.Context) error {
		if err := os.WriteFile(ws.subtitles(), []byte(srt.Render(cues)), 0o644); err != nil {
			return services.Wrap(services.ErrRender, "segment", "write", "", err)
		}
		if issues := srt.ValidateFile(ws.subtitles()); len(issues) > 0 {
			logger.Warn("subtitle file has issues",
				logging.String("issues", strings.Join(issues, ", ")),
				logging.Int("cues", len(cues)))
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 8: burn subtitles into the video.
	renderedPath := ws.rendered(ext)
	if err := o.stage(ctx, record, "render", func(ctx context.Context) error {
		if err := o.runner.BurnSubtitles(ctx, videoPath, ws.subtitles(), renderedPath); err != nil {
			return services.Wrap(services.ErrRender, "render", "ffmpeg", "", err)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	// Stage 9: publish the result, keyed from the source basename.
	destKey := o.cfg.Pipeline.ProcessedPrefix + path.Base(key)
	if err := o.stage(ctx, record, "publish", func(ctx context.Context) error {
		if err := o.store.Put(ctx, o.cfg.Paths.ProcessedBucket, destKey, renderedPath); err != nil {
			return services.Wrap(services.ErrPublish, "publish", "put", destKey, err)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	return Result{DestinationKey: destKey, CueCount: len(cues)}, nil
}

// fetchTranscript supports both collaborator delivery modes: a results object
// in the processed bucket or a direct download URI.
func (o *Orchestrator) fetchTranscript(ctx context.Context, job transcribe.Job, jobName, dest string) error {
	if job.TranscriptURI != "" {
		return o.downloadTranscript(ctx, job.TranscriptURI, dest)
	}
	key := job.TranscriptKey
	if key == "" {
		key = jobName + ".json"
	}
	return o.store.Get(ctx, o.cfg.Paths.ProcessedBucket, key, dest)
}

func (o *Orchestrator) downloadTranscript(ctx context.Context, uri, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	resp, err := o.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcript download %s: %s", uri, resp.Status)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	return out.Close()
}

// stage runs one pipeline stage with ledger persistence and lifecycle logging.
func (o *Orchestrator) stage(ctx context.Context, record *queue.Job, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, o.logger)

	if record != nil {
		record.Status = queue.StatusRunning
		record.Stage = name
		o.updateRecord(stageCtx, record)
	}

	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()
	if err := fn(stageCtx); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err))
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

// fail records the terminal failure after cleanup has been scheduled and
// passes the error through unchanged.
func (o *Orchestrator) fail(ctx context.Context, record *queue.Job, err error) error {
	if record != nil {
		record.Status = queue.StatusFailed
		if stage := services.FailureStage(err); stage != "" {
			record.Stage = stage
		}
		record.ErrorMessage = err.Error()
		o.updateRecord(ctx, record)
	}
	return err
}

func (o *Orchestrator) newRecord(ctx context.Context, bucket, key string) (*queue.Job, error) {
	if o.ledger == nil {
		return nil, nil
	}
	record, err := o.ledger.NewJob(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}
	return record, nil
}

func (o *Orchestrator) updateRecord(ctx context.Context, record *queue.Job) {
	if o.ledger == nil || record == nil {
		return
	}
	if err := o.ledger.Update(ctx, record); err != nil {
		logging.WithContext(ctx, o.logger).Warn("failed to persist job record", logging.Error(err))
	}
}

func recordID(record *queue.Job, key string) string {
	if record != nil {
		return record.ID
	}
	return path.Base(key) + "-" + uuid.NewString()
}
