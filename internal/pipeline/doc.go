// Package pipeline sequences the analyze, transcribe, select, and render
// stages over a resolved source. Stage results are fingerprinted so repeated
// runs skip work whose inputs have not changed, state lives in the SQLite
// store with a JSON manifest exported at stage boundaries, and a file lock
// keeps each run directory single-writer.
package pipeline
