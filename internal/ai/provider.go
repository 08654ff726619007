// Package ai suggests classification labels for media items using vision
// models. Providers share a prompt and response contract so the caller can
// switch between them with a flag.
package ai

import "context"

// ItemContext carries catalog metadata that may help the model.
type ItemContext struct {
	Name      string // file name
	TakenAt   string // capture timestamp, EXIF layout or Unknown
	Camera    string // normalized camera model
	GroupName string // date bucket
}

// Provider defines the interface for label suggestion backends.
type Provider interface {
	Name() string
	SuggestLabels(
		ctx context.Context,
		imageData []byte,
		item *ItemContext,
		availableLabels []string,
	) (*Suggestion, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token consumption across requests.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Suggestion contains the model's labels for one photo.
type Suggestion struct {
	// Labels with confidence scores, restricted to the available set.
	Labels []LabelWithConfidence `json:"labels"`
	// Description of what's in the photo.
	Description string `json:"description"`
}

// LabelWithConfidence represents a label with its confidence score.
type LabelWithConfidence struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // 0-1
}

// Best returns the highest-confidence label at or above the cutoff.
func (s *Suggestion) Best(minConfidence float64) (string, bool) {
	best := ""
	bestConfidence := 0.0
	for _, l := range s.Labels {
		if l.Confidence >= minConfidence && l.Confidence > bestConfidence {
			best = l.Name
			bestConfidence = l.Confidence
		}
	}
	return best, best != ""
}
