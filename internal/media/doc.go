// Package media shells out to ffmpeg for audio extraction and subtitle
// burn-in, verifying output files in addition to exit codes.
package media
