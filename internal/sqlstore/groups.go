package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

const groupSelectColumns = "name, thumbnail, selection, has_subject, has_new_items"

// GroupRepository provides SQL-backed triage group storage. Group
// membership lives in the group_items table, keyed by group name and
// ordered by insertion position.
type GroupRepository struct {
	store *Store
}

// NewGroupRepository creates a group repository over the store.
func NewGroupRepository(store *Store) *GroupRepository {
	return &GroupRepository{store: store}
}

// Query returns groups matching the query, items included.
func (r *GroupRepository) Query(ctx context.Context, q catalog.Query) ([]catalog.Group, error) {
	where, args, err := buildWhere(q, groupColumns)
	if err != nil {
		return nil, err
	}
	tail, err := buildTail(q, groupColumns, r.store.dialect)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.query(ctx, "SELECT "+groupSelectColumns+" FROM groups"+where+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []catalog.Group
	for rows.Next() {
		var g catalog.Group
		if err := rows.Scan(&g.Name, &g.Thumbnail, &g.Selection, &g.HasSubject, &g.HasNewItems); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	if err := r.loadItems(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Get returns the group with the given name, or catalog.ErrNotFound.
func (r *GroupRepository) Get(ctx context.Context, name string) (catalog.Group, error) {
	var g catalog.Group
	err := r.store.queryRow(ctx, "SELECT "+groupSelectColumns+" FROM groups WHERE name = ?", name).
		Scan(&g.Name, &g.Thumbnail, &g.Selection, &g.HasSubject, &g.HasNewItems)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Group{}, fmt.Errorf("group %s: %w", name, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.Group{}, fmt.Errorf("get group %s: %w", name, err)
	}

	groups := []catalog.Group{g}
	if err := r.loadItems(ctx, groups); err != nil {
		return catalog.Group{}, err
	}
	return groups[0], nil
}

// Upsert inserts or replaces the group and its item membership. The group
// row and its items are written in one transaction so a reader never sees
// a half-replaced membership list.
func (r *GroupRepository) Upsert(ctx context.Context, group catalog.Group) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group upsert: %w", err)
	}
	defer tx.Rollback()

	rebind := r.store.dialect.rebind
	_, err = tx.ExecContext(ctx, rebind(r.store.dialect.upsertGroup),
		group.Name, group.Thumbnail, group.Selection, group.HasSubject, group.HasNewItems,
	)
	if err != nil {
		return fmt.Errorf("upsert group %s: %w", group.Name, err)
	}

	_, err = tx.ExecContext(ctx, rebind("DELETE FROM group_items WHERE group_name = ?"), group.Name)
	if err != nil {
		return fmt.Errorf("clear group %s items: %w", group.Name, err)
	}

	for i, path := range group.Items {
		_, err = tx.ExecContext(ctx,
			rebind("INSERT INTO group_items (group_name, media_path, position) VALUES (?, ?, ?)"),
			group.Name, path, i,
		)
		if err != nil {
			return fmt.Errorf("insert group %s item %s: %w", group.Name, path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group upsert: %w", err)
	}
	return nil
}

// Count returns the number of groups matching the query.
func (r *GroupRepository) Count(ctx context.Context, q catalog.Query) (int, error) {
	where, args, err := buildWhere(q, groupColumns)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.store.queryRow(ctx, "SELECT COUNT(*) FROM groups"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return count, nil
}

// loadItems fills the Items slice of every group in a single query.
func (r *GroupRepository) loadItems(ctx context.Context, groups []catalog.Group) error {
	if len(groups) == 0 {
		return nil
	}

	index := make(map[string]int, len(groups))
	names := make([]any, len(groups))
	for i, g := range groups {
		index[g.Name] = i
		names[i] = g.Name
	}

	rows, err := r.store.query(ctx,
		"SELECT group_name, media_path FROM group_items WHERE group_name IN ("+placeholders(len(names))+") ORDER BY group_name, position",
		names...,
	)
	if err != nil {
		return fmt.Errorf("query group items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, path string
		if err := rows.Scan(&name, &path); err != nil {
			return fmt.Errorf("scan group item: %w", err)
		}
		if i, ok := index[name]; ok {
			groups[i].Items = append(groups[i].Items, path)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate group items: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ catalog.GroupStore = (*GroupRepository)(nil)
