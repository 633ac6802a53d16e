// Package srt converts word-level transcripts into SRT subtitle text.
//
// Segment groups timed transcript items into cues using a silence-gap rule,
// Render serializes cues into the numbered SRT block format, and the
// timestamp helpers convert between seconds and HH:MM:SS,mmm strings. All of
// it is pure; file validation helpers are the only part that touches disk.
package srt
