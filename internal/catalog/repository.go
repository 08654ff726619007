package catalog

import "context"

// MediaStore is the durable catalog of media items.
type MediaStore interface {
	// Query returns items matching the query
	Query(ctx context.Context, q Query) ([]MediaItem, error)
	// Upsert inserts or replaces the item identified by its path
	Upsert(ctx context.Context, item MediaItem) error
	// Count returns the number of items matching the query
	Count(ctx context.Context, q Query) (int, error)
	// UpdateStatusBulk moves every item in status from to status to,
	// returning the number of items changed
	UpdateStatusBulk(ctx context.Context, from, to RecognitionStatus) (int, error)
}

// FaceStore is the durable store of extracted face records.
type FaceStore interface {
	// Add stores a new face record
	Add(ctx context.Context, face Face) error
	// Query returns faces matching the query
	Query(ctx context.Context, q Query) ([]Face, error)
	// Update replaces the face record identified by its ID
	Update(ctx context.Context, face Face) error
	// Count returns the number of faces matching the query
	Count(ctx context.Context, q Query) (int, error)
}

// GroupStore is the durable store of reviewer triage groups.
type GroupStore interface {
	// Query returns groups matching the query, items included
	Query(ctx context.Context, q Query) ([]Group, error)
	// Get returns the group with the given name, or ErrNotFound
	Get(ctx context.Context, name string) (Group, error)
	// Upsert inserts or replaces the group and its item membership
	Upsert(ctx context.Context, group Group) error
	// Count returns the number of groups matching the query
	Count(ctx context.Context, q Query) (int, error)
}

// VectorIndex stores one embedding per face ID and answers nearest-neighbor
// queries. Distances are cosine distances: 0 is identical, lower is more
// similar. Search results come back sorted ascending by distance.
type VectorIndex interface {
	// Add stores the vector under the face ID. The vector dimension must
	// match the index's configured dimension.
	Add(ctx context.Context, faceID string, vec []float32) error
	// Get returns the stored vector, or nil when the face has none
	Get(ctx context.Context, faceID string) ([]float32, error)
	// Search returns up to k nearest neighbors sorted ascending by distance
	Search(ctx context.Context, vec []float32, k int) ([]Match, error)
	// Count returns the number of stored vectors
	Count(ctx context.Context) (int, error)
}
