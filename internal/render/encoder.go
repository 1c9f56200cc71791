package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

// Encoder is the external encode tool contract. Implementations must write
// the job's output path and may be invoked concurrently for distinct jobs.
type Encoder interface {
	Encode(ctx context.Context, sourcePath string, job Job) error
	Verify(ctx context.Context, job Job) error
}

// FFmpegEncoder renders clips with ffmpeg: the source frame becomes a
// blurred cover background with the original fitted on top at the target
// aspect, and the job's ASS subtitles are burned in.
type FFmpegEncoder struct {
	FFmpegBinary  string
	FFprobeBinary string
	Options       config.Render
}

// Encode runs ffmpeg for one job. The argument list is deterministic for a
// given job and configuration.
func (e FFmpegEncoder) Encode(ctx context.Context, sourcePath string, job Job) error {
	binary := strings.TrimSpace(e.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-ss", formatSeconds(job.Start),
		"-to", formatSeconds(job.End),
		"-i", sourcePath,
		"-filter_complex", e.filterGraph(job),
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", e.Options.VideoCodec,
		"-b:v", e.Options.VideoBitrate,
		"-c:a", e.Options.AudioCodec,
		"-b:a", e.Options.AudioBitrate,
		job.OutputPath,
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "render", "encode clip", "ffmpeg cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrEncode, "render", "encode clip", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// filterGraph builds the vertical transform: blurred cover background,
// fitted foreground overlay, then burned subtitles when present.
func (e FFmpegEncoder) filterGraph(job Job) string {
	width := e.Options.TargetWidth
	height := e.Options.TargetHeight
	var b strings.Builder
	fmt.Fprintf(&b, "[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,gblur=sigma=30[bg];", width, height, width, height)
	fmt.Fprintf(&b, "[0:v]scale=%d:-1:force_original_aspect_ratio=decrease[fg];", width)
	b.WriteString("[bg][fg]overlay=(W-w)/2:(H-h)/2")
	if job.ASSPath != "" {
		fmt.Fprintf(&b, "[pre];[pre]subtitles=%s", escapeFilterPath(job.ASSPath))
	}
	b.WriteString("[v]")
	return b.String()
}

// Verify checks that the job produced a playable output: the file exists,
// is non-empty, and its container duration is within the configured
// tolerance of the requested span.
func (e FFmpegEncoder) Verify(ctx context.Context, job Job) error {
	info, err := os.Stat(job.OutputPath)
	if err != nil {
		return services.Wrap(services.ErrEncode, "render", "verify clip", "output missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrEncode, "render", "verify clip", "output empty", nil)
	}

	probe, err := media.Probe(ctx, e.FFprobeBinary, job.OutputPath)
	if err != nil {
		return services.Wrap(services.ErrEncode, "render", "verify clip", "probe output", err)
	}
	got := probe.DurationSeconds()
	want := job.Duration()
	if math.Abs(got-want) > e.Options.DurationTolerance {
		return services.Wrap(services.ErrEncode, "render", "verify clip",
			fmt.Sprintf("duration %.2fs outside tolerance of requested %.2fs", got, want), nil)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
