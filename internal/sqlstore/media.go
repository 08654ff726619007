package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

const mediaSelectColumns = "path, name, size, type, camera, location, taken_at, classification, has_subject, status, group_name"

// MediaRepository provides SQL-backed media item storage.
type MediaRepository struct {
	store *Store
}

// NewMediaRepository creates a media repository over the store.
func NewMediaRepository(store *Store) *MediaRepository {
	return &MediaRepository{store: store}
}

// Query returns items matching the query.
func (r *MediaRepository) Query(ctx context.Context, q catalog.Query) ([]catalog.MediaItem, error) {
	where, args, err := buildWhere(q, mediaColumns)
	if err != nil {
		return nil, err
	}
	tail, err := buildTail(q, mediaColumns, r.store.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.query(ctx, "SELECT "+mediaSelectColumns+" FROM media_items"+where+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query media items: %w", err)
	}
	defer rows.Close()

	return scanMediaRows(rows)
}

// Upsert inserts the item or replaces the record with the same path.
func (r *MediaRepository) Upsert(ctx context.Context, item catalog.MediaItem) error {
	_, err := r.store.exec(ctx, r.store.dialect.upsertMedia,
		item.Path, item.Name, item.Size, item.Type, item.Camera, item.Location,
		item.TakenAt, item.Classification, item.HasSubject, item.Status, item.GroupName,
	)
	if err != nil {
		return fmt.Errorf("upsert media item %s: %w", item.Path, err)
	}
	return nil
}

// Count returns the number of items matching the query.
func (r *MediaRepository) Count(ctx context.Context, q catalog.Query) (int, error) {
	where, args, err := buildWhere(q, mediaColumns)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.store.queryRow(ctx, "SELECT COUNT(*) FROM media_items"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count media items: %w", err)
	}
	return count, nil
}

// UpdateStatusBulk moves every item with status from to status to and
// returns how many rows changed.
func (r *MediaRepository) UpdateStatusBulk(ctx context.Context, from, to catalog.RecognitionStatus) (int, error) {
	result, err := r.store.exec(ctx, "UPDATE media_items SET status = ? WHERE status = ?", to, from)
	if err != nil {
		return 0, fmt.Errorf("bulk update status %s to %s: %w", from, to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update rows affected: %w", err)
	}
	return int(affected), nil
}

func scanMediaRows(rows *sql.Rows) ([]catalog.MediaItem, error) {
	var items []catalog.MediaItem
	for rows.Next() {
		var item catalog.MediaItem
		err := rows.Scan(
			&item.Path, &item.Name, &item.Size, &item.Type, &item.Camera, &item.Location,
			&item.TakenAt, &item.Classification, &item.HasSubject, &item.Status, &item.GroupName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media items: %w", err)
	}
	return items, nil
}

// Verify interface compliance.
var _ catalog.MediaStore = (*MediaRepository)(nil)
