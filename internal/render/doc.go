// Package render turns selected clips into vertical short-form videos. A
// planner derives per-clip encode jobs and writes their subtitle files, an
// Encoder contract wraps the external ffmpeg invocation, and a bounded
// worker pool executes jobs with per-job retry and failure isolation.
package render
