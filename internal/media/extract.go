package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"clipforge/internal/services"
)

// ExtractAudio renders the source's first audio track to a mono PCM WAV file
// at the requested sample rate. The destination directory is created when it
// does not exist.
func ExtractAudio(ctx context.Context, ffmpegBinary, sourcePath, destPath string, sampleRate int) error {
	return ExtractAudioSpan(ctx, ffmpegBinary, sourcePath, destPath, sampleRate, 0, 0)
}

// ExtractAudioSpan extracts a mono PCM WAV slice of the source audio. A zero
// duration means everything from start to the end of the source.
func ExtractAudioSpan(ctx context.Context, ffmpegBinary, sourcePath, destPath string, sampleRate int, start, duration float64) error {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if sampleRate <= 0 {
		return services.Wrap(services.ErrConfiguration, "", "extract audio", fmt.Sprintf("invalid sample rate %d", sampleRate), nil)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return services.Wrap(services.ErrMedia, "", "extract audio", "create destination directory", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
	}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	args = append(args, "-i", sourcePath)
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		destPath,
	)
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "", "extract audio", "ffmpeg cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrMedia, "", "extract audio", strings.TrimSpace(string(output)), err)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
