package transcribe

import (
	"context"
	"fmt"
	"time"

	"subtitler/internal/services"
)

// AwaitCompletion polls the collaborator for the named job until it reaches a
// terminal status or the deadline elapses. The first poll is issued
// immediately; before every later poll the elapsed wall-clock time is checked
// against the deadline so a poll that would exceed budget is never issued.
// The wait between polls is a fixed interval and is the only blocking point;
// it cooperates with ctx cancellation.
//
// A FAILED job returns the job together with a transcription-failure error
// carrying the collaborator's reason. Deadline exhaustion returns a timeout
// error.
func AwaitCompletion(ctx context.Context, client Client, name string, deadline, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	start := time.Now()

	for attempt := 0; ; attempt++ {
		if attempt > 0 && time.Since(start) > deadline {
			return Job{}, services.Wrap(services.ErrTimeout, "transcribe-await", "poll",
				fmt.Sprintf("job %s still pending after %s", name, deadline), nil)
		}

		job, err := client.GetJob(ctx, name)
		if err != nil {
			return Job{}, services.Wrap(services.ErrTranscription, "transcribe-await", "status", "", err)
		}

		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusFailed:
			reason := job.FailureReason
			if reason == "" {
				reason = "no failure reason reported"
			}
			return job, services.Wrap(services.ErrTranscription, "transcribe-await", "job", reason, nil)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Job{}, ctx.Err()
		case <-timer.C:
		}
	}
}
