package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMedia marks unreadable or corrupt source media.
	ErrMedia = errors.New("media error")
	// ErrModelUnavailable marks a missing or unloadable speech-to-text model.
	// The orchestrator downgrades to peaks-only mode instead of aborting.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEncode marks an external encode tool failure after retries.
	ErrEncode = errors.New("encode failure")
	// ErrConfiguration marks an invalid configuration value detected at
	// construction time, before any stage executes.
	ErrConfiguration = errors.New("configuration error")
	// ErrCacheCorruption marks a fingerprint/artifact mismatch on resume.
	ErrCacheCorruption = errors.New("cache corruption")
	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Degradable reports whether a stage error permits continuing the run in
// degraded peaks-only mode rather than failing it.
func Degradable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
