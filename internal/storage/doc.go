// Package storage defines the object-storage boundary the pipeline consumes
// and a directory-backed implementation used for local deployments and tests.
package storage
