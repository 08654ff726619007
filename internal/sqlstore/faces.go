package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

const faceSelectColumns = "face_id, media_path, bbox_x1, bbox_y1, bbox_x2, bbox_y2, subject_in_image, subject_in_face, hidden"

// FaceRepository provides SQL-backed face record storage.
type FaceRepository struct {
	store *Store
}

// NewFaceRepository creates a face repository over the store.
func NewFaceRepository(store *Store) *FaceRepository {
	return &FaceRepository{store: store}
}

// Add stores a new face record.
func (r *FaceRepository) Add(ctx context.Context, face catalog.Face) error {
	x1, y1, x2, y2 := bboxColumns(face.BBox)
	_, err := r.store.exec(ctx,
		"INSERT INTO faces (face_id, media_path, bbox_x1, bbox_y1, bbox_x2, bbox_y2, subject_in_image, subject_in_face, hidden) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		face.ID, face.MediaPath, x1, y1, x2, y2, face.SubjectInImage, face.SubjectInFace, face.Hidden,
	)
	if err != nil {
		return fmt.Errorf("insert face %s: %w", face.ID, err)
	}
	return nil
}

// Query returns faces matching the query.
func (r *FaceRepository) Query(ctx context.Context, q catalog.Query) ([]catalog.Face, error) {
	where, args, err := buildWhere(q, faceColumns)
	if err != nil {
		return nil, err
	}
	tail, err := buildTail(q, faceColumns, r.store.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.query(ctx, "SELECT "+faceSelectColumns+" FROM faces"+where+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaceRows(rows)
}

// Update replaces the face record identified by its ID. Returns
// catalog.ErrNotFound when no such face exists.
func (r *FaceRepository) Update(ctx context.Context, face catalog.Face) error {
	// MySQL reports zero affected rows for an update that changes no column
	// values, so existence is checked separately instead.
	var exists bool
	err := r.store.queryRow(ctx, "SELECT EXISTS (SELECT 1 FROM faces WHERE face_id = ?)", face.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check face %s: %w", face.ID, err)
	}
	if !exists {
		return fmt.Errorf("face %s: %w", face.ID, catalog.ErrNotFound)
	}

	x1, y1, x2, y2 := bboxColumns(face.BBox)
	_, err = r.store.exec(ctx,
		"UPDATE faces SET media_path = ?, bbox_x1 = ?, bbox_y1 = ?, bbox_x2 = ?, bbox_y2 = ?, subject_in_image = ?, subject_in_face = ?, hidden = ? WHERE face_id = ?",
		face.MediaPath, x1, y1, x2, y2, face.SubjectInImage, face.SubjectInFace, face.Hidden, face.ID,
	)
	if err != nil {
		return fmt.Errorf("update face %s: %w", face.ID, err)
	}
	return nil
}

// Count returns the number of faces matching the query.
func (r *FaceRepository) Count(ctx context.Context, q catalog.Query) (int, error) {
	where, args, err := buildWhere(q, faceColumns)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.store.queryRow(ctx, "SELECT COUNT(*) FROM faces"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

func bboxColumns(bbox []int) (x1, y1, x2, y2 int) {
	if len(bbox) == 4 {
		return bbox[0], bbox[1], bbox[2], bbox[3]
	}
	return 0, 0, 0, 0
}

func scanFaceRows(rows *sql.Rows) ([]catalog.Face, error) {
	var faces []catalog.Face
	for rows.Next() {
		var face catalog.Face
		var x1, y1, x2, y2 int
		err := rows.Scan(
			&face.ID, &face.MediaPath, &x1, &y1, &x2, &y2,
			&face.SubjectInImage, &face.SubjectInFace, &face.Hidden,
		)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		face.BBox = []int{x1, y1, x2, y2}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// Verify interface compliance.
var _ catalog.FaceStore = (*FaceRepository)(nil)
