package selection

import (
	"math"
	"testing"

	"clipforge/internal/transcript"
)

func candidate(start, end, score float64) transcript.Candidate {
	return transcript.Candidate{Start: start, End: end, Score: score}
}

func assertInvariants(t *testing.T, clips []Clip, opts Options) {
	t.Helper()
	total := 0.0
	for i, c := range clips {
		if c.End <= c.Start {
			t.Fatalf("clip %d has non-positive duration: %+v", i, c)
		}
		total += c.Duration()
		if i == 0 {
			continue
		}
		if c.Start < clips[i-1].Start {
			t.Fatalf("clips not ordered by start: %+v", clips)
		}
		if gap := c.Start - clips[i-1].End; gap < opts.MinGapSeconds {
			t.Fatalf("gap %v between clips %d and %d below minimum %v", gap, i-1, i, opts.MinGapSeconds)
		}
	}
	if opts.MaxTotalSeconds > 0 && total > opts.MaxTotalSeconds+1e-9 {
		t.Fatalf("total duration %v exceeds ceiling %v", total, opts.MaxTotalSeconds)
	}
}

func TestSelectEmptyInput(t *testing.T) {
	clips := Select(nil, Options{MinGapSeconds: 2, MaxTotalSeconds: 300})
	if clips == nil || len(clips) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", clips)
	}
}

func TestSelectPicksMaxScoreNonOverlapping(t *testing.T) {
	candidates := []transcript.Candidate{
		candidate(0, 20, 1.0),
		candidate(10, 30, 5.0), // overlaps both neighbors, worth more than the pair
		candidate(25, 45, 1.5),
	}
	opts := Options{MinGapSeconds: 2, MaxTotalSeconds: 300}

	clips := Select(candidates, opts)
	assertInvariants(t, clips, opts)
	if len(clips) != 1 {
		t.Fatalf("expected single winning clip, got %d: %+v", len(clips), clips)
	}
	if clips[0].Start != 10 || clips[0].End != 30 {
		t.Fatalf("unexpected winner: %+v", clips[0])
	}
}

func TestSelectRespectsMinGap(t *testing.T) {
	// Non-overlapping but only 1s apart; MinGap 2 forbids taking both.
	candidates := []transcript.Candidate{
		candidate(0, 20, 1.0),
		candidate(21, 41, 1.1),
	}
	opts := Options{MinGapSeconds: 2, MaxTotalSeconds: 300}

	clips := Select(candidates, opts)
	assertInvariants(t, clips, opts)
	if len(clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(clips))
	}
	if clips[0].Score != 1.1 {
		t.Fatalf("expected higher-score clip kept, got %+v", clips[0])
	}
}

func TestSelectKeepsCompatibleSet(t *testing.T) {
	candidates := []transcript.Candidate{
		candidate(0, 20, 1.0),
		candidate(25, 45, 1.5),
		candidate(50, 70, 2.0),
	}
	opts := Options{MinGapSeconds: 2, MaxTotalSeconds: 300}

	clips := Select(candidates, opts)
	assertInvariants(t, clips, opts)
	if len(clips) != 3 {
		t.Fatalf("expected all 3 compatible clips, got %d", len(clips))
	}
}

func TestSelectEqualScoreTieBreaksEarlierStart(t *testing.T) {
	candidates := []transcript.Candidate{
		candidate(10, 30, 2.0),
		candidate(12, 32, 2.0),
	}
	opts := Options{MinGapSeconds: 2, MaxTotalSeconds: 300}

	clips := Select(candidates, opts)
	assertInvariants(t, clips, opts)
	if len(clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(clips))
	}
	if clips[0].Start != 10 {
		t.Fatalf("expected earlier-start clip on tie, got %+v", clips[0])
	}
}

func TestSelectEnforcesTotalCeiling(t *testing.T) {
	candidates := []transcript.Candidate{
		candidate(0, 40, 3.0),
		candidate(50, 90, 2.0),
		candidate(100, 140, 1.0), // lowest score, dropped for the ceiling
	}
	opts := Options{MinGapSeconds: 2, MaxTotalSeconds: 90}

	clips := Select(candidates, opts)
	assertInvariants(t, clips, opts)
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips after ceiling, got %d: %+v", len(clips), clips)
	}
	for _, c := range clips {
		if c.Score < 2.0 {
			t.Fatalf("expected lowest-score clip dropped, kept %+v", c)
		}
	}
}

func TestSelectDeterministic(t *testing.T) {
	candidates := []transcript.Candidate{
		candidate(0, 20, 1.2),
		candidate(5, 25, 1.2),
		candidate(30, 55, 0.8),
		candidate(40, 60, 0.8),
		candidate(70, 95, 2.5),
	}
	opts := Options{MinGapSeconds: 2, MaxTotalSeconds: 70}

	first := Select(candidates, opts)
	for run := 0; run < 5; run++ {
		again := Select(candidates, opts)
		if len(again) != len(first) {
			t.Fatalf("selection size changed between runs: %d vs %d", len(again), len(first))
		}
		for i := range first {
			if math.Abs(again[i].Start-first[i].Start) > 1e-12 || math.Abs(again[i].End-first[i].End) > 1e-12 {
				t.Fatalf("selection changed between runs: %+v vs %+v", again, first)
			}
		}
	}
}
