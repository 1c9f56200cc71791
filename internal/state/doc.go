// Package state persists pipeline runs, per-stage records, and render jobs
// in SQLite. The store is the single serialized writer of run state; a JSON
// manifest snapshot is exported at stage boundaries for inspection and
// resumption checks.
package state
