package analysis

import (
	"math"
	"sort"
)

// Window is a half-open time span in source seconds.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Peak is a detected excitement moment. Time is the envelope position of the
// local maximum, Score its loudness relative to the adaptive threshold, and
// Window the buffered span handed to downstream stages.
type Peak struct {
	Time   float64 `json:"time"`
	Score  float64 `json:"score"`
	Window Window  `json:"window"`
}

// Params controls peak detection.
type Params struct {
	// ThresholdK scales the local standard deviation added to the local
	// mean to form the detection threshold.
	ThresholdK float64
	// ThresholdWindow is the number of envelope points in the sliding
	// statistics window.
	ThresholdWindow int
	// MinSeparation is the minimum time in seconds between reported peaks.
	MinSeparation float64
	// PreBuffer and PostBuffer expand each peak into its window.
	PreBuffer  float64
	PostBuffer float64
	// SourceDuration clamps windows to the source bounds.
	SourceDuration float64
}

// DetectPeaks finds local envelope maxima above a sliding mean + k·stddev
// threshold, merges peaks closer than MinSeparation keeping the highest
// score, and expands survivors into buffered windows. The result is ordered
// by time with pairwise spacing of at least MinSeparation. An empty result
// is valid.
func DetectPeaks(envelope []Point, params Params) []Peak {
	if len(envelope) < 3 || params.ThresholdK <= 0 || params.ThresholdWindow < 2 {
		return nil
	}

	raw := detectRaw(envelope, params)
	if len(raw) == 0 {
		return nil
	}
	merged := mergeClose(raw, params.MinSeparation)

	peaks := make([]Peak, 0, len(merged))
	for _, p := range merged {
		start := p.Time - params.PreBuffer
		end := p.Time + params.PostBuffer
		if start < 0 {
			start = 0
		}
		if params.SourceDuration > 0 && end > params.SourceDuration {
			end = params.SourceDuration
		}
		if end <= start {
			continue
		}
		p.Window = Window{Start: start, End: end}
		peaks = append(peaks, p)
	}
	return peaks
}

func detectRaw(envelope []Point, params Params) []Peak {
	half := params.ThresholdWindow / 2
	raw := make([]Peak, 0, 16)
	for i := 1; i < len(envelope)-1; i++ {
		current := envelope[i].RMS
		if current <= envelope[i-1].RMS || current < envelope[i+1].RMS {
			continue
		}

		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := lo + params.ThresholdWindow
		if hi > len(envelope) {
			hi = len(envelope)
			lo = hi - params.ThresholdWindow
			if lo < 0 {
				lo = 0
			}
		}
		mean, stddev := meanStddev(envelope[lo:hi])
		threshold := mean + params.ThresholdK*stddev
		if threshold <= 0 || current <= threshold {
			continue
		}
		raw = append(raw, Peak{
			Time:  envelope[i].Time,
			Score: current / threshold,
		})
	}
	return raw
}

// mergeClose collapses peaks within minSeparation of each other, keeping the
// strongest. Ties keep the earlier peak so repeated runs stay deterministic.
func mergeClose(raw []Peak, minSeparation float64) []Peak {
	if minSeparation <= 0 || len(raw) < 2 {
		return raw
	}

	byScore := make([]int, len(raw))
	for i := range byScore {
		byScore[i] = i
	}
	sort.SliceStable(byScore, func(a, b int) bool {
		ia, ib := byScore[a], byScore[b]
		if raw[ia].Score != raw[ib].Score {
			return raw[ia].Score > raw[ib].Score
		}
		return raw[ia].Time < raw[ib].Time
	})

	suppressed := make([]bool, len(raw))
	kept := make([]Peak, 0, len(raw))
	for _, idx := range byScore {
		if suppressed[idx] {
			continue
		}
		kept = append(kept, raw[idx])
		for other := range raw {
			if other == idx || suppressed[other] {
				continue
			}
			if math.Abs(raw[other].Time-raw[idx].Time) < minSeparation {
				suppressed[other] = true
			}
		}
	}

	sort.Slice(kept, func(a, b int) bool { return kept[a].Time < kept[b].Time })
	return kept
}

func meanStddev(points []Point) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.RMS
	}
	mean := sum / float64(len(points))

	variance := 0.0
	for _, p := range points {
		diff := p.RMS - mean
		variance += diff * diff
	}
	variance /= float64(len(points))
	return mean, math.Sqrt(variance)
}
