package transcript

import (
	"strings"

	"golang.org/x/text/cases"
)

// FilterOptions controls which segments survive filtering and how keyword
// matches influence scoring.
type FilterOptions struct {
	ConfidenceThreshold float64
	IncludeKeywords     []string
	ExcludeKeywords     []string
	// IncludeBoost multiplies a segment's relevance when it matches an
	// include keyword. Values below 1 are treated as 1.
	IncludeBoost float64
}

// Filter drops segments below the confidence threshold and segments matching
// any exclude keyword. Matching is Unicode case folded.
func Filter(segments []Segment, opts FilterOptions) []Segment {
	folder := cases.Fold()
	excluded := foldAll(folder, opts.ExcludeKeywords)

	kept := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Confidence < opts.ConfidenceThreshold {
			continue
		}
		if matchesAny(folder.String(seg.Text), excluded) {
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}

// Relevance scores a segment for reconciliation. Base relevance is the
// engine confidence, boosted when the text matches an include keyword.
func Relevance(seg Segment, opts FilterOptions) float64 {
	relevance := seg.Confidence
	boost := opts.IncludeBoost
	if boost < 1 {
		boost = 1
	}
	folder := cases.Fold()
	if matchesAny(folder.String(seg.Text), foldAll(folder, opts.IncludeKeywords)) {
		relevance *= boost
	}
	return relevance
}

func foldAll(folder cases.Caser, keywords []string) []string {
	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		folded = append(folded, folder.String(kw))
	}
	return folded
}

func matchesAny(foldedText string, foldedKeywords []string) bool {
	for _, kw := range foldedKeywords {
		if strings.Contains(foldedText, kw) {
			return true
		}
	}
	return false
}
