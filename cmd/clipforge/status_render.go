package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"clipforge/internal/pipeline"
	"clipforge/internal/state"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

// renderEventLine converts a pipeline progress event to a status line.
func renderEventLine(ev pipeline.Event, colorize bool) string {
	label := ev.Stage
	kind := statusInfo
	message := ev.Message

	switch ev.Type {
	case pipeline.EventRunStarted:
		label = "run"
		message = "started " + ev.Message
	case pipeline.EventRunFinished:
		label = "run"
		kind = statusKindForStatus(state.Status(ev.Message))
		message = ev.Message
	case pipeline.EventStageStarted:
		message = "started"
	case pipeline.EventStageSkipped:
		kind = statusOK
		message = "skipped (cached)"
	case pipeline.EventStageDone:
		kind = statusOK
		message = "done"
	case pipeline.EventStageFailed:
		kind = statusError
		if message == "" {
			message = "failed"
		}
	case pipeline.EventDegraded:
		kind = statusWarn
		message = "transcription unavailable, continuing with peak windows only"
	case pipeline.EventJobDone:
		kind = statusOK
		message = fmt.Sprintf("clip %d rendered", ev.JobIndex)
	case pipeline.EventJobFailed:
		kind = statusError
		message = fmt.Sprintf("clip %d failed", ev.JobIndex)
	}

	return renderStatusLine(label, kind, message, colorize)
}

func statusKindForStatus(status state.Status) statusKind {
	switch status {
	case state.StatusDone, state.StatusSkipped:
		return statusOK
	case state.StatusPartialSuccess:
		return statusWarn
	case state.StatusFailed, state.StatusCancelled:
		return statusError
	default:
		return statusInfo
	}
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		line = ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
