// Package pipeline sequences one uploaded video through download, audio
// extraction, external transcription, subtitle synthesis, burn-in, and
// publication.
//
// The orchestrator owns a per-invocation workspace and guarantees its removal
// on every exit path. Failures are tagged with the services package markers
// and surface after cleanup; no partial output is ever published.
package pipeline
