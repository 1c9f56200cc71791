package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipforge/internal/services"
)

// Engine produces speech segments from a mono PCM WAV file.
type Engine interface {
	Transcribe(ctx context.Context, wavPath string) ([]Segment, error)
}

// WhisperCLI invokes a whisper.cpp-style command line binary. The binary is
// expected to accept -m/-f/-oj/-of flags and write a JSON transcript next to
// the given output prefix.
type WhisperCLI struct {
	Binary   string
	Model    string
	Language string
	WorkDir  string
}

type whisperOutput struct {
	Segments []struct {
		Start      float64  `json:"start"`
		End        float64  `json:"end"`
		Text       string   `json:"text"`
		Confidence *float64 `json:"confidence"`
		Words      []Word   `json:"words"`
	} `json:"segments"`
}

// Transcribe runs the binary against the WAV file and parses its JSON output.
// A missing binary or model file reports ErrModelUnavailable so callers can
// fall back to peaks-only mode.
func (w WhisperCLI) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	binary := strings.TrimSpace(w.Binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrModelUnavailable, "transcribe", "resolve engine", "no transcription binary configured", nil)
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, services.Wrap(services.ErrModelUnavailable, "transcribe", "resolve engine", fmt.Sprintf("binary %q not found", binary), err)
	}
	if _, err := os.Stat(w.Model); err != nil {
		return nil, services.Wrap(services.ErrModelUnavailable, "transcribe", "resolve model", fmt.Sprintf("model %q not readable", w.Model), err)
	}

	workDir := w.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(wavPath)
	}
	prefix := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath)))

	args := []string{
		"-m", w.Model,
		"-f", wavPath,
		"-oj",
		"-of", prefix,
	}
	if lang := strings.TrimSpace(w.Language); lang != "" {
		args = append(args, "-l", lang)
	}

	cmd := exec.CommandContext(ctx, resolved, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "transcribe", "run engine", "engine cancelled", ctx.Err())
		}
		return nil, services.Wrap(services.ErrTransient, "transcribe", "run engine", strings.TrimSpace(string(output)), err)
	}

	payload, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "read transcript", "engine produced no JSON output", err)
	}
	return parseSegments(payload)
}

func parseSegments(payload []byte) ([]Segment, error) {
	var decoded whisperOutput
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "parse transcript", "invalid engine JSON", err)
	}

	segments := make([]Segment, 0, len(decoded.Segments))
	for _, raw := range decoded.Segments {
		text := strings.TrimSpace(raw.Text)
		if text == "" {
			continue
		}
		confidence := 1.0
		if raw.Confidence != nil {
			confidence = *raw.Confidence
		}
		words := make([]Word, 0, len(raw.Words))
		for _, word := range raw.Words {
			word.Text = strings.TrimSpace(word.Text)
			if word.Text == "" {
				continue
			}
			words = append(words, word)
		}
		segments = append(segments, Segment{
			Start:      raw.Start,
			End:        raw.End,
			Text:       text,
			Confidence: confidence,
			Words:      words,
		})
	}
	return segments, nil
}

// Offset shifts chunk-relative segment timings back into source time.
func Offset(segments []Segment, offset float64) []Segment {
	if offset == 0 {
		return segments
	}
	shifted := make([]Segment, len(segments))
	for i, seg := range segments {
		seg.Start += offset
		seg.End += offset
		words := make([]Word, len(seg.Words))
		for j, word := range seg.Words {
			word.Start += offset
			word.End += offset
			words[j] = word
		}
		seg.Words = words
		shifted[i] = seg
	}
	return shifted
}
