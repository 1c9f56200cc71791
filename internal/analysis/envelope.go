package analysis

import (
	"math"

	"clipforge/internal/media"
)

// Point is one envelope sample: the RMS amplitude of the frame starting at
// Time.
type Point struct {
	Time float64 `json:"time"`
	RMS  float64 `json:"rms"`
}

// ComputeEnvelope reduces PCM audio to a short-time RMS envelope. Frames of
// frameSeconds are advanced by hopSeconds; a trailing partial frame is
// included when it holds at least one sample.
func ComputeEnvelope(pcm media.PCM, frameSeconds, hopSeconds float64) []Point {
	if pcm.SampleRate <= 0 || len(pcm.Samples) == 0 {
		return nil
	}
	frame := int(frameSeconds * float64(pcm.SampleRate))
	hop := int(hopSeconds * float64(pcm.SampleRate))
	if frame <= 0 || hop <= 0 {
		return nil
	}

	points := make([]Point, 0, len(pcm.Samples)/hop+1)
	for start := 0; start < len(pcm.Samples); start += hop {
		end := start + frame
		if end > len(pcm.Samples) {
			end = len(pcm.Samples)
		}
		sum := 0.0
		for _, s := range pcm.Samples[start:end] {
			sum += s * s
		}
		rms := math.Sqrt(sum / float64(end-start))
		points = append(points, Point{
			Time: float64(start) / float64(pcm.SampleRate),
			RMS:  rms,
		})
		if end == len(pcm.Samples) {
			break
		}
	}
	return points
}
