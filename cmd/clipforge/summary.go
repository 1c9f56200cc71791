package main

import (
	"fmt"
	"strings"
	"time"

	"clipforge/internal/state"
)

// renderRunSummary formats a manifest as the human-readable run report.
func renderRunSummary(manifest state.Manifest, colorize bool) string {
	var b strings.Builder

	runID := manifest.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	b.WriteString(renderSectionHeader("Run "+runID, colorize))
	b.WriteString("\n")
	b.WriteString(renderStatusLine("source", statusInfo, manifest.SourcePath, colorize))
	b.WriteString("\n")
	b.WriteString(renderStatusLine("status", statusKindForStatus(manifest.Status), string(manifest.Status), colorize))
	b.WriteString("\n")
	if manifest.Degraded {
		b.WriteString(renderStatusLine("degraded", statusWarn, "peaks-only transcript", colorize))
		b.WriteString("\n")
	}
	if manifest.ErrorMessage != "" {
		b.WriteString(renderStatusLine("error", statusError, manifest.ErrorMessage, colorize))
		b.WriteString("\n")
	}

	if len(manifest.Stages) > 0 {
		rows := make([][]string, 0, len(manifest.Stages))
		for _, stage := range manifest.Stages {
			duration := ""
			if stage.StartedAt != nil && stage.FinishedAt != nil {
				duration = stage.FinishedAt.Sub(*stage.StartedAt).Round(10 * time.Millisecond).String()
			}
			rows = append(rows, []string{stage.Name, string(stage.Status), duration, stage.ArtifactPath})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Stage", "Status", "Duration", "Artifact"}, rows, nil))
		b.WriteString("\n")
	}

	if len(manifest.Jobs) > 0 {
		rows := make([][]string, 0, len(manifest.Jobs))
		for _, job := range manifest.Jobs {
			rows = append(rows, []string{
				fmt.Sprintf("%d", job.ClipIndex),
				formatTimestamp(job.ClipStart),
				formatTimestamp(job.ClipEnd),
				string(job.Status),
				fmt.Sprintf("%d", job.Attempts),
				job.OutputPath,
			})
		}
		b.WriteString("\n")
		aligns := []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft}
		b.WriteString(renderTable([]string{"Clip", "Start", "End", "Status", "Attempts", "Output"}, rows, aligns))
		b.WriteString("\n")
		for _, job := range manifest.Jobs {
			if job.Status == state.StatusFailed && job.ErrorMessage != "" {
				b.WriteString(renderStatusLine(fmt.Sprintf("clip %d", job.ClipIndex), statusError, job.ErrorMessage, colorize))
				b.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatTimestamp renders seconds as m:ss.s for readability in tables.
func formatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}
