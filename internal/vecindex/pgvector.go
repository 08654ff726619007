package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// efSearch is the candidate pool size for pgvector HNSW scans.
// Higher values improve recall but slow down search.
const efSearch = 100

// PGVector is a PostgreSQL-backed vector index using the pgvector extension.
// It survives restarts without an explicit save step and keeps search on the
// database side, at the cost of requiring a Postgres catalog.
type PGVector struct {
	db  *sql.DB
	dim int
}

// NewPGVector creates an index over the given connection for vectors of the
// given dimension. Call EnsureSchema once before use.
func NewPGVector(db *sql.DB, dim int) *PGVector {
	return &PGVector{db: db, dim: dim}
}

// EnsureSchema creates the pgvector extension, the vector table and its
// search index. Fails when the server does not ship the extension.
func (p *PGVector) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_vectors (
			face_id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.dim),
		`CREATE INDEX IF NOT EXISTS face_vectors_embedding_idx
			ON face_vectors USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure vector schema: %w", err)
		}
	}
	return nil
}

// Add stores the vector under the face ID, replacing any previous one.
func (p *PGVector) Add(ctx context.Context, faceID string, vec []float32) error {
	if len(vec) != p.dim {
		return fmt.Errorf("%w: got %d, index is configured for %d", ErrDimensionMismatch, len(vec), p.dim)
	}

	query := `
		INSERT INTO face_vectors (face_id, embedding)
		VALUES ($1, $2::vector)
		ON CONFLICT (face_id) DO UPDATE SET embedding = EXCLUDED.embedding
	`
	if _, err := p.db.ExecContext(ctx, query, faceID, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}
	return nil
}

// Get returns the stored vector for the face ID, or nil when absent.
func (p *PGVector) Get(ctx context.Context, faceID string) ([]float32, error) {
	var vec pgvector.Vector
	err := p.db.QueryRowContext(ctx, "SELECT embedding FROM face_vectors WHERE face_id = $1", faceID).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}
	return vec.Slice(), nil
}

// Search returns up to k nearest neighbors sorted ascending by cosine
// distance.
func (p *PGVector) Search(ctx context.Context, vec []float32, k int) ([]catalog.Match, error) {
	if len(vec) != p.dim {
		return nil, fmt.Errorf("%w: query has %d, index is configured for %d", ErrDimensionMismatch, len(vec), p.dim)
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Widen the candidate pool to match the in-memory index's recall.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT face_id, embedding <=> $1::vector AS distance
		FROM face_vectors
		ORDER BY distance
		LIMIT $2
	`
	rows, err := tx.QueryContext(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("query similar vectors: %w", err)
	}
	defer rows.Close()

	var matches []catalog.Match
	for rows.Next() {
		var m catalog.Match
		if err := rows.Scan(&m.FaceID, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// Count returns the number of stored vectors.
func (p *PGVector) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM face_vectors").Scan(&count); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return count, nil
}

// Verify interface compliance.
var _ catalog.VectorIndex = (*PGVector)(nil)
