package transcribe_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"subtitler/internal/services"
	"subtitler/internal/transcribe"
)

type fakeClient struct {
	polls      int
	completeAt int
	failAt     int
	reason     string
}

func (f *fakeClient) StartJob(ctx context.Context, input transcribe.StartJobInput) error {
	return nil
}

func (f *fakeClient) GetJob(ctx context.Context, name string) (transcribe.Job, error) {
	f.polls++
	if f.failAt > 0 && f.polls >= f.failAt {
		return transcribe.Job{Name: name, Status: transcribe.StatusFailed, FailureReason: f.reason}, nil
	}
	if f.completeAt > 0 && f.polls >= f.completeAt {
		return transcribe.Job{Name: name, Status: transcribe.StatusCompleted, TranscriptKey: name + ".json"}, nil
	}
	return transcribe.Job{Name: name, Status: transcribe.StatusInProgress}, nil
}

func TestAwaitCompletionReturnsPayload(t *testing.T) {
	client := &fakeClient{completeAt: 3}
	job, err := transcribe.AwaitCompletion(context.Background(), client, "job-1", time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitCompletion returned error: %v", err)
	}
	if job.Status != transcribe.StatusCompleted {
		t.Fatalf("unexpected status %q", job.Status)
	}
	if job.TranscriptKey != "job-1.json" {
		t.Fatalf("unexpected transcript key %q", job.TranscriptKey)
	}
	if client.polls > 4 {
		t.Fatalf("polled %d times, expected at most completeAt+1", client.polls)
	}
}

func TestAwaitCompletionFailure(t *testing.T) {
	client := &fakeClient{failAt: 2, reason: "media unreadable"}
	_, err := transcribe.AwaitCompletion(context.Background(), client, "job-2", time.Second, time.Millisecond)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription failure, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "media unreadable") {
		t.Fatalf("failure reason missing from %q", got)
	}
}

func TestAwaitCompletionTimesOut(t *testing.T) {
	client := &fakeClient{} // never terminal
	start := time.Now()
	_, err := transcribe.AwaitCompletion(context.Background(), client, "job-3", 20*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("poller did not stop promptly: %s", elapsed)
	}
	if client.polls == 0 {
		t.Fatal("expected at least one poll before timing out")
	}
}

func TestAwaitCompletionHonorsContext(t *testing.T) {
	client := &fakeClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := transcribe.AwaitCompletion(ctx, client, "job-4", time.Minute, 10*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
