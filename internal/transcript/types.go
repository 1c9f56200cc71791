package transcript

// Word is a single recognized word with source-relative timing.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// Segment is one recognized utterance with source-relative timing.
// Confidence is the engine's recognition confidence in [0, 1]; engines that
// do not report one use 1.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Cue is a subtitle line attached to a candidate, still in source time.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Candidate is a scored clip proposal handed to the selection stage.
type Candidate struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
	Cues  []Cue   `json:"cues,omitempty"`
}

// Duration returns the candidate span in seconds.
func (c Candidate) Duration() float64 {
	return c.End - c.Start
}
