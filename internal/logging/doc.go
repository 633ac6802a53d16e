// Package logging builds the process-wide slog logger and supplies attribute
// and context helpers so components emit consistent structured fields.
package logging
