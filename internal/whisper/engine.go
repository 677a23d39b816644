package whisper

import "context"

// Segment is a timed span of recognized speech. Offsets are seconds from
// the start of the audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the outcome of one inference run. Language is the source
// language the engine detected or was forced to use, even when the task
// translated the text.
type Result struct {
	Language string    `json:"language"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Request describes a single inference run. Language is a source-language
// hint; empty means detect. Translate switches the engine from
// same-language transcription to translation.
type Request struct {
	AudioPath string
	ModelPath string
	Language  string
	Translate bool
}

type Engine interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}
