// Package mock provides mock implementations of catalog interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/vecindex"
)

// MockMediaStore is a mock implementation of catalog.MediaStore
type MockMediaStore struct {
	mu    sync.RWMutex
	items map[string]catalog.MediaItem // keyed by Path

	// Track calls
	UpsertCalls           []catalog.MediaItem
	UpdateStatusBulkCalls []StatusTransition

	// Error injection
	QueryError            error
	UpsertError           error
	CountError            error
	UpdateStatusBulkError error
}

// StatusTransition tracks an UpdateStatusBulk call
type StatusTransition struct {
	From catalog.RecognitionStatus
	To   catalog.RecognitionStatus
}

// NewMockMediaStore creates a new mock media store
func NewMockMediaStore() *MockMediaStore {
	return &MockMediaStore{
		items: make(map[string]catalog.MediaItem),
	}
}

// AddItem seeds the mock store with an item
func (m *MockMediaStore) AddItem(item catalog.MediaItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Path] = item
}

// Item returns the stored item by path for assertions
func (m *MockMediaStore) Item(path string) (catalog.MediaItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[path]
	return item, ok
}

// Query returns items matching the query
func (m *MockMediaStore) Query(ctx context.Context, q catalog.Query) ([]catalog.MediaItem, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []catalog.MediaItem
	for _, item := range m.items {
		if mediaMatches(item, q) {
			result = append(result, item)
		}
	}

	sortField := q.Sort
	if sortField == "" {
		sortField = catalog.FieldPath
	}
	sort.Slice(result, func(i, j int) bool {
		l := fmt.Sprint(mediaFieldValue(result[i], sortField))
		r := fmt.Sprint(mediaFieldValue(result[j], sortField))
		if l == r {
			return result[i].Path < result[j].Path
		}
		if q.Desc {
			return l > r
		}
		return l < r
	})

	return paginate(result, q.Offset, q.Limit), nil
}

// Upsert inserts or replaces an item by path
func (m *MockMediaStore) Upsert(ctx context.Context, item catalog.MediaItem) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls = append(m.UpsertCalls, item)
	m.items[item.Path] = item
	return nil
}

// Count returns the number of items matching the query
func (m *MockMediaStore) Count(ctx context.Context, q catalog.Query) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, item := range m.items {
		if mediaMatches(item, q) {
			count++
		}
	}
	return count, nil
}

// UpdateStatusBulk moves every item with status from to status to
func (m *MockMediaStore) UpdateStatusBulk(ctx context.Context, from, to catalog.RecognitionStatus) (int, error) {
	if m.UpdateStatusBulkError != nil {
		return 0, m.UpdateStatusBulkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateStatusBulkCalls = append(m.UpdateStatusBulkCalls, StatusTransition{From: from, To: to})

	count := 0
	for path, item := range m.items {
		if item.Status == from {
			item.Status = to
			m.items[path] = item
			count++
		}
	}
	return count, nil
}

func mediaMatches(item catalog.MediaItem, q catalog.Query) bool {
	for _, c := range q.Conds {
		if !c.Matches(mediaFieldValue(item, c.Field)) {
			return false
		}
	}
	return true
}

func mediaFieldValue(item catalog.MediaItem, f catalog.Field) any {
	switch f {
	case catalog.FieldPath:
		return item.Path
	case catalog.FieldName:
		return item.Name
	case catalog.FieldType:
		return item.Type
	case catalog.FieldCamera:
		return item.Camera
	case catalog.FieldStatus:
		return item.Status
	case catalog.FieldClassification:
		return item.Classification
	case catalog.FieldHasSubject:
		return item.HasSubject
	case catalog.FieldGroupName:
		return item.GroupName
	default:
		return nil
	}
}

// MockFaceStore is a mock implementation of catalog.FaceStore
type MockFaceStore struct {
	mu    sync.RWMutex
	faces map[string]catalog.Face // keyed by ID

	// Track calls
	AddCalls    []catalog.Face
	UpdateCalls []catalog.Face

	// Error injection
	AddError    error
	QueryError  error
	UpdateError error
	CountError  error
}

// NewMockFaceStore creates a new mock face store
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{
		faces: make(map[string]catalog.Face),
	}
}

// AddFace seeds the mock store with a face
func (m *MockFaceStore) AddFace(face catalog.Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces[face.ID] = face
}

// Face returns the stored face by ID for assertions
func (m *MockFaceStore) Face(id string) (catalog.Face, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	face, ok := m.faces[id]
	return face, ok
}

// Add stores a new face
func (m *MockFaceStore) Add(ctx context.Context, face catalog.Face) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddCalls = append(m.AddCalls, face)
	m.faces[face.ID] = face
	return nil
}

// Query returns faces matching the query
func (m *MockFaceStore) Query(ctx context.Context, q catalog.Query) ([]catalog.Face, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []catalog.Face
	for _, face := range m.faces {
		if faceMatches(face, q) {
			result = append(result, face)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return paginate(result, q.Offset, q.Limit), nil
}

// Update replaces a stored face by ID
func (m *MockFaceStore) Update(ctx context.Context, face catalog.Face) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, face)
	if _, ok := m.faces[face.ID]; !ok {
		return catalog.ErrNotFound
	}
	m.faces[face.ID] = face
	return nil
}

// Count returns the number of faces matching the query
func (m *MockFaceStore) Count(ctx context.Context, q catalog.Query) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, face := range m.faces {
		if faceMatches(face, q) {
			count++
		}
	}
	return count, nil
}

func faceMatches(face catalog.Face, q catalog.Query) bool {
	for _, c := range q.Conds {
		if !c.Matches(faceFieldValue(face, c.Field)) {
			return false
		}
	}
	return true
}

func faceFieldValue(face catalog.Face, f catalog.Field) any {
	switch f {
	case catalog.FieldFaceID:
		return face.ID
	case catalog.FieldMediaPath:
		return face.MediaPath
	case catalog.FieldSubjectInImage:
		return face.SubjectInImage
	case catalog.FieldSubjectInFace:
		return face.SubjectInFace
	case catalog.FieldHidden:
		return face.Hidden
	default:
		return nil
	}
}

// MockGroupStore is a mock implementation of catalog.GroupStore
type MockGroupStore struct {
	mu     sync.RWMutex
	groups map[string]catalog.Group // keyed by Name

	// Track calls
	UpsertCalls []catalog.Group

	// Error injection
	QueryError  error
	GetError    error
	UpsertError error
	CountError  error
}

// NewMockGroupStore creates a new mock group store
func NewMockGroupStore() *MockGroupStore {
	return &MockGroupStore{
		groups: make(map[string]catalog.Group),
	}
}

// AddGroup seeds the mock store with a group
func (m *MockGroupStore) AddGroup(group catalog.Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.Name] = group
}

// Group returns the stored group by name for assertions
func (m *MockGroupStore) Group(name string) (catalog.Group, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[name]
	return group, ok
}

// Query returns groups matching the query
func (m *MockGroupStore) Query(ctx context.Context, q catalog.Query) ([]catalog.Group, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []catalog.Group
	for _, group := range m.groups {
		if groupMatches(group, q) {
			result = append(result, group)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return paginate(result, q.Offset, q.Limit), nil
}

// Get returns a group by name
func (m *MockGroupStore) Get(ctx context.Context, name string) (catalog.Group, error) {
	if m.GetError != nil {
		return catalog.Group{}, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[name]
	if !ok {
		return catalog.Group{}, catalog.ErrNotFound
	}
	return group, nil
}

// Upsert inserts or replaces a group by name
func (m *MockGroupStore) Upsert(ctx context.Context, group catalog.Group) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls = append(m.UpsertCalls, group)
	m.groups[group.Name] = group
	return nil
}

// Count returns the number of groups matching the query
func (m *MockGroupStore) Count(ctx context.Context, q catalog.Query) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, group := range m.groups {
		if groupMatches(group, q) {
			count++
		}
	}
	return count, nil
}

func groupMatches(group catalog.Group, q catalog.Query) bool {
	for _, c := range q.Conds {
		if !c.Matches(groupFieldValue(group, c.Field)) {
			return false
		}
	}
	return true
}

func groupFieldValue(group catalog.Group, f catalog.Field) any {
	switch f {
	case catalog.FieldGroupName:
		return group.Name
	case catalog.FieldSelection:
		return group.Selection
	case catalog.FieldHasSubject:
		return group.HasSubject
	case catalog.FieldHasNewItems:
		return group.HasNewItems
	default:
		return nil
	}
}

// MockVectorIndex is a mock implementation of catalog.VectorIndex.
// Search computes real cosine distances so similarity behavior can be
// tested with hand-picked vectors.
type MockVectorIndex struct {
	mu   sync.RWMutex
	vecs map[string][]float32

	// Track calls
	AddCalls  []VectorAdd
	SaveCalls int

	// Error injection
	AddError    error
	GetError    error
	SearchError error
	CountError  error
	SaveError   error
}

// VectorAdd tracks an Add call
type VectorAdd struct {
	FaceID string
	Vec    []float32
}

// NewMockVectorIndex creates a new mock vector index
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		vecs: make(map[string][]float32),
	}
}

// AddVector seeds the mock index with a vector
func (m *MockVectorIndex) AddVector(faceID string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[faceID] = vec
}

// Add stores the vector under the face ID
func (m *MockVectorIndex) Add(ctx context.Context, faceID string, vec []float32) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddCalls = append(m.AddCalls, VectorAdd{FaceID: faceID, Vec: vec})
	m.vecs[faceID] = vec
	return nil
}

// Get returns the stored vector, or nil when absent
func (m *MockVectorIndex) Get(ctx context.Context, faceID string) ([]float32, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vecs[faceID], nil
}

// Search returns up to k nearest neighbors sorted ascending by distance
func (m *MockVectorIndex) Search(ctx context.Context, vec []float32, k int) ([]catalog.Match, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]catalog.Match, 0, len(m.vecs))
	for id, stored := range m.vecs {
		matches = append(matches, catalog.Match{
			FaceID:   id,
			Distance: vecindex.CosineDistance(vec, stored),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].FaceID < matches[j].FaceID
		}
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of stored vectors
func (m *MockVectorIndex) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vecs), nil
}

// Save records a flush request
func (m *MockVectorIndex) Save() error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Verify interface compliance
var _ catalog.MediaStore = (*MockMediaStore)(nil)
var _ catalog.FaceStore = (*MockFaceStore)(nil)
var _ catalog.GroupStore = (*MockGroupStore)(nil)
var _ catalog.VectorIndex = (*MockVectorIndex)(nil)
