// Package watcher converts filesystem activity in the upload bucket
// directory into pipeline triggers, debouncing in-progress uploads.
package watcher
