package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for pipeline failure classification. Each marker maps to
// one stage family of the subtitle pipeline; callers tag failures with Wrap
// and classify them later with errors.Is.
var (
	ErrSourceUnavailable     = errors.New("source unavailable")
	ErrExtraction            = errors.New("audio extraction failed")
	ErrTranscriptionStart    = errors.New("transcription start failed")
	ErrTimeout               = errors.New("timeout")
	ErrTranscription         = errors.New("transcription failed")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrRender                = errors.New("subtitle render failed")
	ErrPublish               = errors.New("publish failed")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Terminal reports whether the error carries any pipeline failure marker.
// Every marker is terminal for the current invocation; retry, if any, belongs
// to the triggering framework.
func Terminal(err error) bool {
	for _, marker := range []error{
		ErrSourceUnavailable,
		ErrExtraction,
		ErrTranscriptionStart,
		ErrTimeout,
		ErrTranscription,
		ErrTranscriptUnavailable,
		ErrRender,
		ErrPublish,
		ErrValidation,
		ErrConfiguration,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// FailureStage maps a tagged pipeline error to the stage name recorded in the
// job ledger.
func FailureStage(err error) string {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return "fetch"
	case errors.Is(err, ErrExtraction):
		return "extract"
	case errors.Is(err, ErrTranscriptionStart):
		return "transcribe-start"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTranscription):
		return "transcribe-await"
	case errors.Is(err, ErrTranscriptUnavailable):
		return "transcript-fetch"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrPublish):
		return "publish"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
