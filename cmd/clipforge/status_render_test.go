package main

import (
	"strings"
	"testing"
	"time"

	"clipforge/internal/pipeline"
	"clipforge/internal/state"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("render", statusOK, "done", false)
	if !strings.Contains(line, "render:") || !strings.Contains(line, "[OK] done") {
		t.Fatalf("unexpected status line: %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatalf("plain line should carry no color codes: %q", line)
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	line := renderStatusLine("render", statusError, "boom", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red wrapping, got %q", line)
	}
}

func TestRenderEventLines(t *testing.T) {
	cases := []struct {
		event pipeline.Event
		want  string
	}{
		{pipeline.Event{Type: pipeline.EventStageSkipped, Stage: "analyze"}, "skipped (cached)"},
		{pipeline.Event{Type: pipeline.EventDegraded, Stage: "transcribe"}, "peak windows only"},
		{pipeline.Event{Type: pipeline.EventJobDone, Stage: "render", JobIndex: 2}, "clip 2 rendered"},
		{pipeline.Event{Type: pipeline.EventJobFailed, Stage: "render", JobIndex: 1}, "clip 1 failed"},
		{pipeline.Event{Type: pipeline.EventRunFinished, Message: "partial_success"}, "partial_success"},
	}
	for _, tc := range cases {
		line := renderEventLine(tc.event, false)
		if !strings.Contains(line, tc.want) {
			t.Fatalf("event %s: expected %q in %q", tc.event.Type, tc.want, line)
		}
	}
}

func TestStatusKindForStatus(t *testing.T) {
	cases := map[state.Status]statusKind{
		state.StatusDone:           statusOK,
		state.StatusSkipped:        statusOK,
		state.StatusPartialSuccess: statusWarn,
		state.StatusFailed:         statusError,
		state.StatusCancelled:      statusError,
		state.StatusRunning:        statusInfo,
	}
	for status, want := range cases {
		if got := statusKindForStatus(status); got != want {
			t.Fatalf("status %q: expected kind %d, got %d", status, want, got)
		}
	}
}

func TestRenderRunSummary(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(2300 * time.Millisecond)
	manifest := state.Manifest{
		RunID:      "0f27a1d4-aaaa-bbbb-cccc-000000000000",
		SourcePath: "/videos/match.mp4",
		Status:     state.StatusPartialSuccess,
		Degraded:   true,
		Stages: []state.ManifestStage{
			{Name: "analyze", Status: state.StatusDone, StartedAt: &started, FinishedAt: &finished, ArtifactPath: "peaks.json"},
			{Name: "render", Status: state.StatusDone},
		},
		Jobs: []state.ManifestJob{
			{ClipIndex: 0, ClipStart: 47, ClipEnd: 63.5, Status: state.StatusDone, Attempts: 1, OutputPath: "/out/match_clip000_ab12.mp4"},
			{ClipIndex: 1, ClipStart: 190, ClipEnd: 210, Status: state.StatusFailed, Attempts: 2, ErrorMessage: "encode failed"},
		},
	}

	out := renderRunSummary(manifest, false)
	for _, want := range []string{
		"== Run 0f27a1d4 ==",
		"partial_success",
		"peaks-only transcript",
		"peaks.json",
		"2.3s",
		"0:47.0",
		"1:03.5",
		"match_clip000_ab12.mp4",
		"clip 1:",
		"encode failed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:     "0:00.0",
		5:     "0:05.0",
		75.25: "1:15.2",
		600:   "10:00.0",
	}
	for seconds, want := range cases {
		if got := formatTimestamp(seconds); got != want {
			t.Fatalf("formatTimestamp(%v) = %q, want %q", seconds, got, want)
		}
	}
}
