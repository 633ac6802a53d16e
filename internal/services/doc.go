// Package services defines the shared failure taxonomy and context
// annotations used across pipeline stages.
//
// Every stage failure is tagged with one sentinel marker so the orchestrator,
// ledger, and CLI can classify outcomes with errors.Is without parsing
// message strings.
package services
