// Package deps reports the availability of the external tools the pipeline
// shells out to. Required tools block a run; optional ones put it into a
// reduced mode instead.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"clipforge/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// ModelPath is a data file the command needs; checked with a stat
	// rather than a PATH lookup.
	ModelPath string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// For builds the requirement list from the configuration: ffmpeg and ffprobe
// are required, the transcription engine is optional.
func For(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "audio extraction and clip encoding",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "source inspection and output verification",
		},
		{
			Name:        "whisper",
			Command:     cfg.Transcript.Binary,
			Description: "speech transcription (peaks-only mode without it)",
			Optional:    true,
			ModelPath:   cfg.Transcript.Model,
		},
	}
}

// Check evaluates the provided requirements and reports availability.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		if model := strings.TrimSpace(req.ModelPath); model != "" {
			if info, err := os.Stat(model); err != nil || info.IsDir() {
				status.Detail = fmt.Sprintf("model file %q not found", model)
				results = append(results, status)
				continue
			}
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required dependencies that are
// unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
