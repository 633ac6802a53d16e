// Package config loads, normalizes, and validates subtitler configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates every knob the daemon and CLI
// need. Always obtain settings through this package so downstream code
// receives sanitized paths and normalized key prefixes.
package config
