package transcript

import (
	"strings"

	"clipforge/internal/analysis"
)

// ReconcileOptions controls how peaks and segments combine into candidates.
type ReconcileOptions struct {
	PeakWeight       float64
	TranscriptWeight float64
	MinClipSeconds   float64
	MaxClipSeconds   float64
	SourceDuration   float64
	Filter           FilterOptions
}

// Reconcile builds one candidate per peak. When speech segments overlap the
// peak window, boundaries snap outward to the covering segments so clips do
// not start or end mid-utterance, and the candidate score blends the peak
// score with the segments' relevance. Without overlap the raw window stands.
func Reconcile(peaks []analysis.Peak, segments []Segment, opts ReconcileOptions) []Candidate {
	candidates := make([]Candidate, 0, len(peaks))
	for _, peak := range peaks {
		candidate := reconcilePeak(peak, segments, opts)
		candidate = clampCandidate(candidate, opts)
		if candidate.Duration() < opts.MinClipSeconds {
			continue
		}
		candidate.Cues = cuesWithin(segments, candidate.Start, candidate.End)
		candidates = append(candidates, candidate)
	}
	return candidates
}

// PeaksOnly converts raw peak windows straight into candidates. Used when
// the transcription engine is unavailable and the run is degraded.
func PeaksOnly(peaks []analysis.Peak, opts ReconcileOptions) []Candidate {
	candidates := make([]Candidate, 0, len(peaks))
	for _, peak := range peaks {
		candidate := Candidate{
			Start: peak.Window.Start,
			End:   peak.Window.End,
			Score: peak.Score,
		}
		candidate = clampCandidate(candidate, opts)
		if candidate.Duration() < opts.MinClipSeconds {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

func reconcilePeak(peak analysis.Peak, segments []Segment, opts ReconcileOptions) Candidate {
	start := peak.Window.Start
	end := peak.Window.End

	overlapping := make([]Segment, 0, 4)
	relevance := 0.0
	windowSpan := end - start
	var texts []string
	for _, seg := range segments {
		overlap := overlapSeconds(start, end, seg.Start, seg.End)
		if overlap <= 0 {
			continue
		}
		overlapping = append(overlapping, seg)
		if windowSpan > 0 {
			relevance += (overlap / windowSpan) * Relevance(seg, opts.Filter)
		}
		texts = append(texts, seg.Text)
	}

	if len(overlapping) == 0 {
		return Candidate{Start: start, End: end, Score: opts.PeakWeight * peak.Score}
	}

	// Snap outward to segment boundaries.
	if first := overlapping[0].Start; first < start {
		start = first
	}
	if last := overlapping[len(overlapping)-1].End; last > end {
		end = last
	}

	return Candidate{
		Start: start,
		End:   end,
		Score: opts.PeakWeight*peak.Score + opts.TranscriptWeight*relevance,
		Text:  strings.Join(texts, " "),
	}
}

// clampCandidate enforces the duration and source bounds. Over-long spans
// are trimmed at the end; under-long spans grow symmetrically outward as far
// as the source allows.
func clampCandidate(c Candidate, opts ReconcileOptions) Candidate {
	if c.Start < 0 {
		c.Start = 0
	}
	if opts.SourceDuration > 0 && c.End > opts.SourceDuration {
		c.End = opts.SourceDuration
	}

	if opts.MaxClipSeconds > 0 && c.Duration() > opts.MaxClipSeconds {
		c.End = c.Start + opts.MaxClipSeconds
	}

	if opts.MinClipSeconds > 0 && c.Duration() < opts.MinClipSeconds {
		deficit := opts.MinClipSeconds - c.Duration()
		grow := deficit / 2
		c.Start -= grow
		c.End += grow
		if c.Start < 0 {
			c.End -= c.Start
			c.Start = 0
		}
		if opts.SourceDuration > 0 && c.End > opts.SourceDuration {
			shift := c.End - opts.SourceDuration
			c.End = opts.SourceDuration
			c.Start -= shift
			if c.Start < 0 {
				c.Start = 0
			}
		}
	}
	return c
}

func cuesWithin(segments []Segment, start, end float64) []Cue {
	var cues []Cue
	for _, seg := range segments {
		if overlapSeconds(start, end, seg.Start, seg.End) <= 0 {
			continue
		}
		cueStart := seg.Start
		cueEnd := seg.End
		if cueStart < start {
			cueStart = start
		}
		if cueEnd > end {
			cueEnd = end
		}
		cues = append(cues, Cue{Start: cueStart, End: cueEnd, Text: seg.Text})
	}
	return cues
}

func overlapSeconds(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	return end - start
}
