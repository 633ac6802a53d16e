// Command subtitler runs the subtitle pipeline: one-shot processing of a
// single uploaded object, a watch daemon over the upload bucket, and ledger
// and configuration inspection.
package main
