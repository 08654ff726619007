package recognizer

// Insight is a single detected face in an image.
type Insight struct {
	// BBox is [x1, y1, x2, y2] in pixel coordinates of the original image.
	// The image must not be resized before detection or the box no longer
	// lines up with the file on disk.
	BBox []int `json:"bbox"`

	// Embedding is the face descriptor used for similarity search.
	Embedding []float32 `json:"embedding"`
}
