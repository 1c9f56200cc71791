package config

import (
	"fmt"

	"clipforge/internal/services"
)

// Validate ensures the configuration is usable. Every violation is tagged as
// a configuration error so callers can surface it before any stage runs.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateTranscript(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateSubtitleStyle(); err != nil {
		return err
	}
	return nil
}

func configErr(format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "", "", fmt.Sprintf(format, args...), nil)
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return configErr("paths.data_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return configErr("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if a.SampleRate <= 0 {
		return configErr("analysis.sample_rate must be positive")
	}
	if a.FrameSeconds <= 0 {
		return configErr("analysis.frame_seconds must be positive")
	}
	if a.HopSeconds <= 0 {
		return configErr("analysis.hop_seconds must be positive")
	}
	if a.HopSeconds > a.FrameSeconds {
		return configErr("analysis.hop_seconds must not exceed analysis.frame_seconds")
	}
	if a.ThresholdK <= 0 {
		return configErr("analysis.threshold_multiplier must be positive")
	}
	if a.ThresholdWindow <= 1 {
		return configErr("analysis.threshold_window must be greater than 1")
	}
	if a.MinPeakSeparation < 0 {
		return configErr("analysis.min_peak_separation must be >= 0")
	}
	if a.PreBuffer < 0 || a.PostBuffer < 0 {
		return configErr("analysis pre/post buffers must be >= 0")
	}
	if a.MinSourceSeconds < 0 {
		return configErr("analysis.min_source_seconds must be >= 0")
	}
	if a.TimeoutSeconds <= 0 {
		return configErr("analysis.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranscript() error {
	t := c.Transcript
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
		return configErr("transcript.confidence_threshold must be between 0 and 1")
	}
	if t.IncludeBoost < 1 {
		return configErr("transcript.include_boost must be >= 1")
	}
	switch t.Chunking {
	case "full", "peaks":
	default:
		return configErr("transcript.chunking must be %q or %q, got %q", "full", "peaks", t.Chunking)
	}
	if t.ChunkPadding < 0 {
		return configErr("transcript.chunk_padding must be >= 0")
	}
	if t.PeakWeight < 0 || t.TranscriptWeight < 0 {
		return configErr("transcript weights must be >= 0")
	}
	if t.PeakWeight+t.TranscriptWeight <= 0 {
		return configErr("transcript.peak_weight and transcript.transcript_weight must not both be zero")
	}
	if t.TimeoutSeconds <= 0 {
		return configErr("transcript.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSelection() error {
	s := c.Selection
	if s.MinClipSeconds <= 0 {
		return configErr("selection.min_clip_seconds must be positive")
	}
	if s.MaxClipSeconds < s.MinClipSeconds {
		return configErr("selection.max_clip_seconds must be >= selection.min_clip_seconds")
	}
	if s.MaxTotalSeconds < s.MinClipSeconds {
		return configErr("selection.max_total_seconds must fit at least one minimum-length clip")
	}
	if s.MinGapSeconds < 0 {
		return configErr("selection.min_gap_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateRender() error {
	r := c.Render
	if r.Workers <= 0 {
		return configErr("render.workers must be positive")
	}
	if r.RetryCount < 0 {
		return configErr("render.retry_count must be >= 0")
	}
	if r.TimeoutSeconds <= 0 {
		return configErr("render.timeout_seconds must be positive")
	}
	if r.PaddingSeconds < 0 {
		return configErr("render.padding_seconds must be >= 0")
	}
	if r.TargetWidth <= 0 || r.TargetHeight <= 0 {
		return configErr("render target dimensions must be positive")
	}
	if r.DurationTolerance <= 0 {
		return configErr("render.duration_tolerance_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSubtitleStyle() error {
	s := c.SubtitleStyle
	if s.FontSize <= 0 {
		return configErr("subtitle_style.font_size must be positive")
	}
	if s.OutlineWidth < 0 {
		return configErr("subtitle_style.outline_width must be >= 0")
	}
	if s.Alignment < 1 || s.Alignment > 9 {
		return configErr("subtitle_style.alignment must be a numpad position between 1 and 9")
	}
	if s.MarginVertical < 0 {
		return configErr("subtitle_style.margin_vertical must be >= 0")
	}
	if s.MaxLineLength <= 0 {
		return configErr("subtitle_style.max_line_length must be positive")
	}
	return nil
}
