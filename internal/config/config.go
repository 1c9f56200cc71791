package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Analysis contains configuration for audio peak detection.
type Analysis struct {
	SampleRate        int     `toml:"sample_rate"`
	FrameSeconds      float64 `toml:"frame_seconds"`
	HopSeconds        float64 `toml:"hop_seconds"`
	ThresholdK        float64 `toml:"threshold_multiplier"`
	ThresholdWindow   int     `toml:"threshold_window"`
	MinPeakSeparation float64 `toml:"min_peak_separation"`
	PreBuffer         float64 `toml:"pre_buffer"`
	PostBuffer        float64 `toml:"post_buffer"`
	MinSourceSeconds  float64 `toml:"min_source_seconds"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Transcript contains configuration for the speech-to-text stage and
// peak/transcript reconciliation.
type Transcript struct {
	Binary              string   `toml:"binary"`
	Model               string   `toml:"model"`
	Language            string   `toml:"language"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	IncludeKeywords     []string `toml:"include_keywords"`
	ExcludeKeywords     []string `toml:"exclude_keywords"`
	IncludeBoost        float64  `toml:"include_boost"`
	Chunking            string   `toml:"chunking"`
	ChunkPadding        float64  `toml:"chunk_padding"`
	PeakWeight          float64  `toml:"peak_weight"`
	TranscriptWeight    float64  `toml:"transcript_weight"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
}

// Selection contains clip selection constraints.
type Selection struct {
	MinClipSeconds  float64 `toml:"min_clip_seconds"`
	MaxClipSeconds  float64 `toml:"max_clip_seconds"`
	MaxTotalSeconds float64 `toml:"max_total_seconds"`
	MinGapSeconds   float64 `toml:"min_gap_seconds"`
}

// Render contains configuration for the rendering stage.
type Render struct {
	Workers           int     `toml:"workers"`
	RetryCount        int     `toml:"retry_count"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	PaddingSeconds    float64 `toml:"padding_seconds"`
	TargetWidth       int     `toml:"target_width"`
	TargetHeight      int     `toml:"target_height"`
	DurationTolerance float64 `toml:"duration_tolerance_seconds"`
	VideoCodec        string  `toml:"video_codec"`
	VideoBitrate      string  `toml:"video_bitrate"`
	AudioCodec        string  `toml:"audio_codec"`
	AudioBitrate      string  `toml:"audio_bitrate"`
}

// SubtitleStyle contains the burned-subtitle appearance settings.
type SubtitleStyle struct {
	FontName       string `toml:"font_name"`
	FontSize       int    `toml:"font_size"`
	Bold           bool   `toml:"bold"`
	OutlineWidth   int    `toml:"outline_width"`
	PrimaryColor   string `toml:"primary_color"`
	OutlineColor   string `toml:"outline_color"`
	Alignment      int    `toml:"alignment"`
	MarginVertical int    `toml:"margin_vertical"`
	MaxLineLength  int    `toml:"max_line_length"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipforge.
//
// Sections by subsystem:
//   - Paths: run data, rendered output, and log directories
//   - Analysis: audio envelope and peak detection parameters
//   - Transcript: speech-to-text engine and reconciliation weights
//   - Selection: clip duration, gap, and total-duration constraints
//   - Render: encode tool invocation, worker pool, retries
//   - SubtitleStyle: burned subtitle appearance
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Analysis      Analysis      `toml:"analysis"`
	Transcript    Transcript    `toml:"transcript"`
	Selection     Selection     `toml:"selection"`
	Render        Render        `toml:"render"`
	SubtitleStyle SubtitleStyle `toml:"subtitle_style"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file.
// A missing file yields the defaults. The boolean reports whether a file
// was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
