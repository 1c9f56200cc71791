package state

import "time"

// Status values shared by runs, stages, and render jobs.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
	// StatusPartialSuccess applies to runs where at least one render job
	// failed while at least one succeeded.
	StatusPartialSuccess Status = "partial_success"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCancelled, StatusPartialSuccess:
		return true
	}
	return false
}

// StageNames in execution order.
var StageNames = []string{StageAnalyze, StageTranscribe, StageSelect, StageRender}

const (
	StageAnalyze    = "analyze"
	StageTranscribe = "transcribe"
	StageSelect     = "select"
	StageRender     = "render"
)

// Run is one pipeline invocation over a single source.
type Run struct {
	ID             string
	SourcePath     string
	SourceIdentity string
	Dir            string
	Status         Status
	Degraded       bool
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StageRecord tracks one stage's execution inside a run.
type StageRecord struct {
	RunID          string
	Name           string
	Status         Status
	Fingerprint    string
	ArtifactPath   string
	ArtifactDigest string
	ErrorMessage   string
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// JobRecord tracks one render job inside a run.
type JobRecord struct {
	RunID        string
	ClipIndex    int
	ClipStart    float64
	ClipEnd      float64
	OutputPath   string
	Status       Status
	Attempts     int
	ErrorMessage string
}
