package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"clipforge/internal/config"
	"clipforge/internal/selection"
	"clipforge/internal/services"
	"clipforge/internal/subtitles"
)

// Job is one clip encode: trim bounds, output location, and the subtitle
// files burned into the result.
type Job struct {
	Index      int            `json:"index"`
	Clip       selection.Clip `json:"clip"`
	Start      float64        `json:"start"`
	End        float64        `json:"end"`
	OutputPath string         `json:"output_path"`
	ASSPath    string         `json:"ass_path,omitempty"`
	SRTPath    string         `json:"srt_path,omitempty"`
}

// Duration returns the encoded span in seconds.
func (j Job) Duration() float64 {
	return j.End - j.Start
}

// PlanParams feeds BuildPlan.
type PlanParams struct {
	RunID          string
	RunDir         string
	OutputDir      string
	SourceBase     string
	SourceDuration float64
	PaddingSeconds float64
	Style          config.SubtitleStyle
	TargetWidth    int
	TargetHeight   int
}

// BuildPlan expands each clip into a Job. Trim bounds get the configured
// padding, clamped to the source; subtitle cues are re-timed to the padded
// bounds and written as ASS (burned) and SRT (inspection) files under the
// run directory. Output names embed the run ID, clip index, and a digest of
// the clip bounds so concurrent jobs never collide.
func BuildPlan(clips []selection.Clip, params PlanParams) ([]Job, error) {
	if len(clips) == 0 {
		return []Job{}, nil
	}
	subsDir := filepath.Join(params.RunDir, "subs")
	if err := os.MkdirAll(subsDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "plan", "create subtitle directory", err)
	}
	if err := os.MkdirAll(params.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "plan", "create output directory", err)
	}

	jobs := make([]Job, 0, len(clips))
	for index, clip := range clips {
		start := clip.Start - params.PaddingSeconds
		end := clip.End + params.PaddingSeconds
		if start < 0 {
			start = 0
		}
		if params.SourceDuration > 0 && end > params.SourceDuration {
			end = params.SourceDuration
		}

		name := jobName(params.RunID, params.SourceBase, index, start, end)
		job := Job{
			Index:      index,
			Clip:       clip,
			Start:      start,
			End:        end,
			OutputPath: filepath.Join(params.OutputDir, name+".mp4"),
		}

		cues := subtitles.Retime(clip.Cues, start, end)
		if len(cues) > 0 {
			job.ASSPath = filepath.Join(subsDir, name+".ass")
			job.SRTPath = filepath.Join(subsDir, name+".srt")
			ass := subtitles.ComposeASS(cues, params.Style, params.TargetWidth, params.TargetHeight)
			if err := os.WriteFile(job.ASSPath, []byte(ass), 0o644); err != nil {
				return nil, services.Wrap(services.ErrTransient, "render", "plan", "write ASS subtitles", err)
			}
			srt := subtitles.ComposeSRT(cues, params.Style.MaxLineLength)
			if err := os.WriteFile(job.SRTPath, []byte(srt), 0o644); err != nil {
				return nil, services.Wrap(services.ErrTransient, "render", "plan", "write SRT subtitles", err)
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func jobName(runID, base string, index int, start, end float64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%.3f|%.3f", runID, index, start, end))
	return fmt.Sprintf("%s_clip%03d_%s", base, index, hex.EncodeToString(sum[:4]))
}
