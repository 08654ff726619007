package catalog

// RecognitionStatus tracks a media item through the face recognition pipeline
type RecognitionStatus string

const (
	// StatusPending marks an item that has never been submitted for recognition
	StatusPending RecognitionStatus = "pending"
	// StatusRetry marks a previously failed item that the operator re-queued
	StatusRetry RecognitionStatus = "retry"
	// StatusFailed marks an item whose recognition attempt failed after the retry budget
	StatusFailed RecognitionStatus = "failed"
	// StatusDone marks an item whose detected faces are fully persisted
	StatusDone RecognitionStatus = "done"
)

// Media item types
const (
	TypePhoto = "photo"
	TypeVideo = "video"
)

// Group selection values assigned by the reviewer
const (
	SelectionUnprocessed    = "unprocessed"
	SelectionInteresting    = "interesting"
	SelectionNotInteresting = "not interesting"
)

// Unknown is the placeholder for metadata the scanner could not determine
const Unknown = "Unknown"

// NoClassification is the default classification label
const NoClassification = "None"

// MediaItem is the catalog record for one photo or video. The full path is
// the identity; everything else is metadata filled by the scanner or mutated
// by the reviewer and the recognition engine.
type MediaItem struct {
	Path           string            `json:"path"`
	Name           string            `json:"name"`
	Size           int64             `json:"size"`
	Type           string            `json:"type"`
	Camera         string            `json:"camera"`
	Location       string            `json:"location"`
	TakenAt        string            `json:"taken_at"` // "YYYY:MM:DD HH:MM:SS" or Unknown
	Classification string            `json:"classification"`
	HasSubject     bool              `json:"has_subject"`
	Status         RecognitionStatus `json:"status"`
	GroupName      string            `json:"group_name"`
}

// Face is one detected face within a media item. The embedding vector is not
// part of this record: it lives in the VectorIndex, addressable only by the
// face ID.
type Face struct {
	ID             string `json:"face_id"`
	MediaPath      string `json:"media_path"`
	BBox           []int  `json:"bbox"` // [x1, y1, x2, y2] in original pixel coordinates
	SubjectInImage bool   `json:"subject_in_image"`
	SubjectInFace  bool   `json:"subject_in_face"`
	Hidden         bool   `json:"hidden"`
}

// Group is a date bucket of media items, the unit of reviewer triage.
type Group struct {
	Name        string   `json:"name"`
	Thumbnail   string   `json:"thumbnail"`
	Items       []string `json:"items"`
	Selection   string   `json:"selection"`
	HasSubject  bool     `json:"has_subject"`
	HasNewItems bool     `json:"has_new_items"`
}

// Match is a single nearest-neighbor search result. Distance is a cosine
// distance: lower means more similar.
type Match struct {
	FaceID   string  `json:"face_id"`
	Distance float64 `json:"distance"`
}
