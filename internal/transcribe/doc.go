// Package transcribe wraps the external transcription service: job naming,
// submission and status over HTTP, bounded completion polling, and decoding
// of the word-level transcript payload.
package transcribe
