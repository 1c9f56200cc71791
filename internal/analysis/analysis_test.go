package analysis

import (
	"math"
	"testing"

	"clipforge/internal/media"
)

func TestComputeEnvelope(t *testing.T) {
	// 1s of silence, 1s of full-scale square wave, 1s of silence at 100 Hz.
	samples := make([]float64, 300)
	for i := 100; i < 200; i++ {
		samples[i] = 1.0
	}
	pcm := media.PCM{SampleRate: 100, Samples: samples}

	env := ComputeEnvelope(pcm, 0.25, 0.125)
	if len(env) == 0 {
		t.Fatal("expected envelope points")
	}
	for i := 1; i < len(env); i++ {
		if env[i].Time <= env[i-1].Time {
			t.Fatalf("envelope times not increasing at %d", i)
		}
	}

	var maxRMS float64
	var maxTime float64
	for _, p := range env {
		if p.RMS > maxRMS {
			maxRMS = p.RMS
			maxTime = p.Time
		}
	}
	if math.Abs(maxRMS-1.0) > 1e-9 {
		t.Fatalf("expected full-scale RMS near 1.0, got %v", maxRMS)
	}
	if maxTime < 0.9 || maxTime > 2.1 {
		t.Fatalf("loudest frame outside the loud second: %v", maxTime)
	}
}

func TestComputeEnvelopeEmptyInput(t *testing.T) {
	if env := ComputeEnvelope(media.PCM{}, 0.25, 0.125); env != nil {
		t.Fatalf("expected nil envelope, got %d points", len(env))
	}
}

func syntheticEnvelope(n int, peaksAt map[int]float64) []Point {
	env := make([]Point, n)
	for i := range env {
		env[i] = Point{Time: float64(i) * 0.125, RMS: 0.05}
	}
	for idx, rms := range peaksAt {
		env[idx].RMS = rms
	}
	return env
}

func TestDetectPeaksOrderingAndSeparation(t *testing.T) {
	env := syntheticEnvelope(800, map[int]float64{
		100: 0.9,
		104: 0.7, // within MinSeparation of 100; must merge away
		400: 0.8,
		700: 0.95,
	})
	params := Params{
		ThresholdK:      1.6,
		ThresholdWindow: 64,
		MinSeparation:   2.0,
		PreBuffer:       1.5,
		PostBuffer:      8.0,
		SourceDuration:  100.0,
	}

	peaks := DetectPeaks(env, params)
	if len(peaks) != 3 {
		t.Fatalf("expected 3 peaks, got %d: %+v", len(peaks), peaks)
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i].Time <= peaks[i-1].Time {
			t.Fatalf("peaks not ordered by time: %+v", peaks)
		}
		if peaks[i].Time-peaks[i-1].Time < params.MinSeparation {
			t.Fatalf("peaks %d and %d closer than MinSeparation", i-1, i)
		}
	}
	// The merged pair keeps the stronger peak at index 100 (t=12.5).
	if math.Abs(peaks[0].Time-12.5) > 1e-9 {
		t.Fatalf("expected merged peak at 12.5s, got %v", peaks[0].Time)
	}
}

func TestDetectPeaksWindowsBuffered(t *testing.T) {
	env := syntheticEnvelope(800, map[int]float64{4: 0.9, 780: 0.9})
	params := Params{
		ThresholdK:      1.6,
		ThresholdWindow: 64,
		MinSeparation:   2.0,
		PreBuffer:       1.5,
		PostBuffer:      8.0,
		SourceDuration:  99.0,
	}

	peaks := DetectPeaks(env, params)
	if len(peaks) != 2 {
		t.Fatalf("expected 2 peaks, got %d", len(peaks))
	}
	first := peaks[0]
	if first.Window.Start != 0 {
		t.Fatalf("expected first window clamped to 0, got %v", first.Window.Start)
	}
	last := peaks[len(peaks)-1]
	if last.Window.End > params.SourceDuration {
		t.Fatalf("window end %v exceeds source duration", last.Window.End)
	}
	for _, p := range peaks {
		if p.Window.Start > p.Time || p.Window.End < p.Time {
			t.Fatalf("window does not contain its peak: %+v", p)
		}
		if p.Score <= 1.0 {
			t.Fatalf("expected score above threshold ratio 1.0, got %v", p.Score)
		}
	}
}

func TestDetectPeaksQuietAudioYieldsNone(t *testing.T) {
	env := syntheticEnvelope(400, nil)
	params := Params{ThresholdK: 1.6, ThresholdWindow: 64, MinSeparation: 2.0, PreBuffer: 1, PostBuffer: 2, SourceDuration: 50}
	if peaks := DetectPeaks(env, params); len(peaks) != 0 {
		t.Fatalf("expected no peaks in flat audio, got %d", len(peaks))
	}
}
