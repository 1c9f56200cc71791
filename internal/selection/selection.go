// Package selection chooses the final clip set from scored candidates. It
// maximizes total score over non-overlapping candidates with a minimum gap
// between neighbors, then enforces the total-duration ceiling.
package selection

import (
	"sort"

	"clipforge/internal/transcript"
)

// Clip is a selected span ready for rendering.
type Clip struct {
	Start float64          `json:"start"`
	End   float64          `json:"end"`
	Score float64          `json:"score"`
	Text  string           `json:"text,omitempty"`
	Cues  []transcript.Cue `json:"cues,omitempty"`
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	return c.End - c.Start
}

// Options constrains the selected set.
type Options struct {
	MinGapSeconds   float64
	MaxTotalSeconds float64
}

// Select runs weighted interval scheduling over the candidates: the result
// maximizes the total score subject to pairwise spacing of at least
// MinGapSeconds. When the winners exceed MaxTotalSeconds, the lowest-score
// clips are dropped until the total fits. Output is ordered by start time;
// empty input yields empty output.
func Select(candidates []transcript.Candidate, opts Options) []Clip {
	if len(candidates) == 0 {
		return []Clip{}
	}

	ordered := make([]transcript.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].End != ordered[b].End {
			return ordered[a].End < ordered[b].End
		}
		return ordered[a].Start < ordered[b].Start
	})

	chosen := schedule(ordered, opts.MinGapSeconds)
	chosen = enforceCeiling(chosen, opts.MaxTotalSeconds)

	clips := make([]Clip, 0, len(chosen))
	for _, c := range chosen {
		clips = append(clips, Clip{Start: c.Start, End: c.End, Score: c.Score, Text: c.Text, Cues: c.Cues})
	}
	sort.Slice(clips, func(a, b int) bool { return clips[a].Start < clips[b].Start })
	return clips
}

// schedule is the classic weighted interval scheduling DP. predecessor[i] is
// the latest candidate whose end leaves at least minGap before candidate i
// starts. On equal totals the path through the earlier-starting candidate
// wins, keeping the result deterministic.
func schedule(ordered []transcript.Candidate, minGap float64) []transcript.Candidate {
	n := len(ordered)
	predecessor := make([]int, n)
	for i := range ordered {
		predecessor[i] = -1
		limit := ordered[i].Start - minGap
		lo, hi := 0, i-1
		for lo <= hi {
			mid := (lo + hi) / 2
			if ordered[mid].End <= limit {
				predecessor[i] = mid
				lo = mid + 1
			} else {
				hi = mid - 1
			}
		}
	}

	best := make([]float64, n+1)
	take := make([]bool, n)
	for i := 0; i < n; i++ {
		with := ordered[i].Score
		if predecessor[i] >= 0 {
			with += best[predecessor[i]+1]
		}
		without := best[i]
		if with > without {
			best[i+1] = with
			take[i] = true
		} else {
			best[i+1] = without
		}
	}

	var chosen []transcript.Candidate
	for i := n - 1; i >= 0; {
		if take[i] {
			chosen = append(chosen, ordered[i])
			i = predecessor[i]
		} else {
			i--
		}
	}
	return chosen
}

// enforceCeiling drops the lowest-score clips until the total duration fits.
// Score ties drop the later-starting clip first.
func enforceCeiling(chosen []transcript.Candidate, maxTotal float64) []transcript.Candidate {
	if maxTotal <= 0 {
		return chosen
	}
	total := 0.0
	for _, c := range chosen {
		total += c.Duration()
	}
	if total <= maxTotal {
		return chosen
	}

	sort.SliceStable(chosen, func(a, b int) bool {
		if chosen[a].Score != chosen[b].Score {
			return chosen[a].Score < chosen[b].Score
		}
		return chosen[a].Start > chosen[b].Start
	})
	for len(chosen) > 0 && total > maxTotal {
		total -= chosen[0].Duration()
		chosen = chosen[1:]
	}
	return chosen
}
