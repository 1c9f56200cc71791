package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "clipforge", "runs")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "clipforge", "output") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Transcript.Chunking != "full" {
		t.Fatalf("unexpected default chunking: %q", cfg.Transcript.Chunking)
	}
	if cfg.Selection.MinClipSeconds != 15.0 || cfg.Selection.MaxClipSeconds != 60.0 {
		t.Fatalf("unexpected clip bounds: %v..%v", cfg.Selection.MinClipSeconds, cfg.Selection.MaxClipSeconds)
	}
	if cfg.Render.TargetWidth != 1080 || cfg.Render.TargetHeight != 1920 {
		t.Fatalf("unexpected target dimensions: %dx%d", cfg.Render.TargetWidth, cfg.Render.TargetHeight)
	}
	if cfg.SubtitleStyle.MaxLineLength != 36 {
		t.Fatalf("unexpected max line length: %d", cfg.SubtitleStyle.MaxLineLength)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipforge.toml")

	type payload struct {
		Analysis struct {
			ThresholdK        float64 `toml:"threshold_multiplier"`
			MinPeakSeparation float64 `toml:"min_peak_separation"`
		} `toml:"analysis"`
		Transcript struct {
			Chunking        string   `toml:"chunking"`
			IncludeKeywords []string `toml:"include_keywords"`
		} `toml:"transcript"`
		Render struct {
			Workers int `toml:"workers"`
		} `toml:"render"`
	}
	custom := payload{}
	custom.Analysis.ThresholdK = 2.2
	custom.Analysis.MinPeakSeparation = 4.0
	custom.Transcript.Chunking = "PEAKS"
	custom.Transcript.IncludeKeywords = []string{" goal ", "", "wow"}
	custom.Render.Workers = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Analysis.ThresholdK != 2.2 {
		t.Fatalf("expected threshold multiplier override, got %v", cfg.Analysis.ThresholdK)
	}
	if cfg.Analysis.MinPeakSeparation != 4.0 {
		t.Fatalf("expected peak separation override, got %v", cfg.Analysis.MinPeakSeparation)
	}
	if cfg.Transcript.Chunking != "peaks" {
		t.Fatalf("expected chunking lowered to peaks, got %q", cfg.Transcript.Chunking)
	}
	want := []string{"goal", "wow"}
	if len(cfg.Transcript.IncludeKeywords) != len(want) {
		t.Fatalf("unexpected keywords: %v", cfg.Transcript.IncludeKeywords)
	}
	for i, kw := range want {
		if cfg.Transcript.IncludeKeywords[i] != kw {
			t.Fatalf("unexpected keyword at %d: got %q want %q", i, cfg.Transcript.IncludeKeywords[i], kw)
		}
	}
	if cfg.Render.Workers != 4 {
		t.Fatalf("expected 4 render workers, got %d", cfg.Render.Workers)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[selection]") {
		t.Fatalf("sample config missing selection section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"hop exceeds frame", func(cfg *config.Config) { cfg.Analysis.HopSeconds = cfg.Analysis.FrameSeconds * 2 }},
		{"non-positive threshold multiplier", func(cfg *config.Config) { cfg.Analysis.ThresholdK = 0 }},
		{"confidence above one", func(cfg *config.Config) { cfg.Transcript.ConfidenceThreshold = 1.5 }},
		{"unknown chunking", func(cfg *config.Config) { cfg.Transcript.Chunking = "sparse" }},
		{"zero weights", func(cfg *config.Config) {
			cfg.Transcript.PeakWeight = 0
			cfg.Transcript.TranscriptWeight = 0
		}},
		{"max clip below min clip", func(cfg *config.Config) { cfg.Selection.MaxClipSeconds = cfg.Selection.MinClipSeconds - 1 }},
		{"total below min clip", func(cfg *config.Config) { cfg.Selection.MaxTotalSeconds = cfg.Selection.MinClipSeconds - 1 }},
		{"zero render workers", func(cfg *config.Config) { cfg.Render.Workers = 0 }},
		{"alignment out of range", func(cfg *config.Config) { cfg.SubtitleStyle.Alignment = 10 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error marker, got %v", err)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
