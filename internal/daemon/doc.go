// Package daemon ties the upload watcher to the pipeline orchestrator under
// a single-instance file lock.
package daemon
