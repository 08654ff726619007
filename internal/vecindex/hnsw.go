package vecindex

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// HNSW graph parameters for face embeddings
const (
	// maxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	maxNeighbors = 16
)

// ErrDimensionMismatch is returned when a vector does not match the index's
// configured dimension. This is a configuration error, not a per-item one.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

const hnswMetaVersion = 1

// hnswMeta is the JSON sidecar written next to a saved index.
type hnswMeta struct {
	Count   int       `json:"count"`
	Dim     int       `json:"dim"`
	SavedAt time.Time `json:"saved_at"`
	Version int       `json:"version"`
}

// HNSW is an in-memory vector index over face embeddings with optional disk
// persistence. Approximate nearest neighbors come from the HNSW graph;
// reported distances are exact cosine distances recomputed from the stored
// vectors.
type HNSW struct {
	dim  int
	path string

	mu         sync.RWMutex
	graph      *hnsw.Graph[string]
	savedGraph *hnsw.SavedGraph[string]
	vecs       map[string][]float32
}

// NewHNSW creates an empty index for vectors of the given dimension.
// The path is where Save/Load persist the index; empty disables persistence.
func NewHNSW(dim int, path string) *HNSW {
	return &HNSW{
		dim:  dim,
		path: path,
		vecs: make(map[string][]float32),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Add stores the vector under the face ID.
func (h *HNSW) Add(ctx context.Context, faceID string, vec []float32) error {
	if len(vec) != h.dim {
		return fmt.Errorf("%w: got %d, index is configured for %d", ErrDimensionMismatch, len(vec), h.dim)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	node := hnsw.MakeNode(faceID, vec)
	if h.savedGraph != nil {
		h.savedGraph.Add(node)
	} else {
		if h.graph == nil {
			h.graph = newGraph()
		}
		h.graph.Add(node)
	}
	h.vecs[faceID] = vec
	return nil
}

// Get returns the stored vector for the face ID, or nil when absent.
func (h *HNSW) Get(ctx context.Context, faceID string) ([]float32, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.vecs[faceID], nil
}

// Search returns up to k nearest neighbors sorted ascending by cosine
// distance. An empty index yields no matches, not an error.
func (h *HNSW) Search(ctx context.Context, vec []float32, k int) ([]catalog.Match, error) {
	if len(vec) != h.dim {
		return nil, fmt.Errorf("%w: query has %d, index is configured for %d", ErrDimensionMismatch, len(vec), h.dim)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		return nil, nil
	}

	var neighbors []hnsw.Node[string]
	if h.graph != nil {
		neighbors = h.graph.Search(vec, k)
	} else {
		neighbors = h.savedGraph.Search(vec, k)
	}

	matches := make([]catalog.Match, 0, len(neighbors))
	for _, n := range neighbors {
		// Recompute the exact distance from the node's vector; the graph's
		// internal ordering is approximate.
		matches = append(matches, catalog.Match{
			FaceID:   n.Key,
			Distance: CosineDistance(vec, n.Value),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of stored vectors.
func (h *HNSW) Count(ctx context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vecs), nil
}

// Save persists the graph, the vectors and a metadata sidecar to disk.
// A nil path or an empty index removes any previous files.
func (h *HNSW) Save() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.path == "" {
		return nil
	}

	if h.graph == nil && h.savedGraph == nil {
		_ = os.Remove(h.path)
		_ = os.Remove(h.path + ".meta")
		_ = os.Remove(h.path + ".vectors")
		return nil
	}

	f, err := os.Create(h.path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if h.graph != nil {
		err = h.graph.Export(f)
	} else {
		err = h.savedGraph.Export(f)
	}
	if err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(h.vecs); err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}
	if err := os.WriteFile(h.path+".vectors", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write vectors file: %w", err)
	}

	meta := hnswMeta{Count: len(h.vecs), Dim: h.dim, SavedAt: time.Now(), Version: hnswMetaVersion}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(h.path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	return nil
}

// Load restores a previously saved index. A missing file is not an error:
// the index simply starts empty. A saved dimension different from the
// configured one is a configuration error.
func (h *HNSW) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.path == "" {
		return nil
	}
	if _, err := os.Stat(h.path); os.IsNotExist(err) {
		return nil
	}

	metaData, err := os.ReadFile(h.path + ".meta")
	if err != nil {
		return fmt.Errorf("read metadata file: %w", err)
	}
	var meta hnswMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	if meta.Dim != h.dim {
		return fmt.Errorf("%w: saved index has %d, configured %d", ErrDimensionMismatch, meta.Dim, h.dim)
	}

	saved, err := hnsw.LoadSavedGraph[string](h.path)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	vecData, err := os.ReadFile(h.path + ".vectors")
	if err != nil {
		return fmt.Errorf("read vectors file: %w", err)
	}
	vecs := make(map[string][]float32)
	if err := gob.NewDecoder(bytes.NewReader(vecData)).Decode(&vecs); err != nil {
		return fmt.Errorf("decode vectors: %w", err)
	}

	h.savedGraph = saved
	h.graph = nil
	h.vecs = vecs
	return nil
}

// Verify interface compliance.
var _ catalog.VectorIndex = (*HNSW)(nil)
