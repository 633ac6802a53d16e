// Package queue persists one ledger record per pipeline invocation in
// SQLite so operators can inspect in-flight and recently finished jobs.
//
// The database is transient operational state rather than an archive; the
// orchestrator writes stage transitions and terminal outcomes, and the CLI
// reads them back for display.
package queue
