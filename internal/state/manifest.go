package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest is the JSON snapshot of a run written at stage boundaries. It
// round-trips losslessly so external tooling can inspect and diff run state.
type Manifest struct {
	RunID          string          `json:"run_id"`
	SourcePath     string          `json:"source_path"`
	SourceIdentity string          `json:"source_identity"`
	Status         Status          `json:"status"`
	Degraded       bool            `json:"degraded"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Stages         []ManifestStage `json:"stages"`
	Jobs           []ManifestJob   `json:"jobs,omitempty"`
}

// ManifestStage mirrors StageRecord for serialization.
type ManifestStage struct {
	Name           string     `json:"name"`
	Status         Status     `json:"status"`
	Fingerprint    string     `json:"fingerprint,omitempty"`
	ArtifactPath   string     `json:"artifact_path,omitempty"`
	ArtifactDigest string     `json:"artifact_digest,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// ManifestJob mirrors JobRecord for serialization.
type ManifestJob struct {
	ClipIndex    int     `json:"clip_index"`
	ClipStart    float64 `json:"clip_start"`
	ClipEnd      float64 `json:"clip_end"`
	OutputPath   string  `json:"output_path"`
	Status       Status  `json:"status"`
	Attempts     int     `json:"attempts"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// BuildManifest assembles a manifest from the store's view of a run.
func (s *Store) BuildManifest(ctx context.Context, runID string) (Manifest, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return Manifest{}, err
	}
	stages, err := s.ListStages(ctx, runID)
	if err != nil {
		return Manifest{}, err
	}
	jobs, err := s.ListJobs(ctx, runID)
	if err != nil {
		return Manifest{}, err
	}

	manifest := Manifest{
		RunID:          run.ID,
		SourcePath:     run.SourcePath,
		SourceIdentity: run.SourceIdentity,
		Status:         run.Status,
		Degraded:       run.Degraded,
		ErrorMessage:   run.ErrorMessage,
		CreatedAt:      run.CreatedAt,
		UpdatedAt:      run.UpdatedAt,
	}
	for _, stage := range stages {
		manifest.Stages = append(manifest.Stages, ManifestStage{
			Name:           stage.Name,
			Status:         stage.Status,
			Fingerprint:    stage.Fingerprint,
			ArtifactPath:   stage.ArtifactPath,
			ArtifactDigest: stage.ArtifactDigest,
			ErrorMessage:   stage.ErrorMessage,
			StartedAt:      stage.StartedAt,
			FinishedAt:     stage.FinishedAt,
		})
	}
	for _, job := range jobs {
		manifest.Jobs = append(manifest.Jobs, ManifestJob{
			ClipIndex:    job.ClipIndex,
			ClipStart:    job.ClipStart,
			ClipEnd:      job.ClipEnd,
			OutputPath:   job.OutputPath,
			Status:       job.Status,
			Attempts:     job.Attempts,
			ErrorMessage: job.ErrorMessage,
		})
	}
	return manifest, nil
}

// ExportManifest writes the manifest JSON atomically via a temp file rename.
func ExportManifest(manifest Manifest, path string) error {
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest JSON file.
func LoadManifest(path string) (Manifest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}
