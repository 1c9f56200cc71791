// Package services provides shared error classification and context plumbing
// used by pipeline stages.
//
// Stage implementations wrap failures with one of the exported sentinel
// errors so the orchestrator can classify them without inspecting message
// text. Context helpers carry run, stage, and correlation identifiers for
// structured logging.
package services
