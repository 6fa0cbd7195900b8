package cms

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveEntity inserts or replaces an entity, its content type and properties.
func (r *SQLiteRepository) SaveEntity(ctx context.Context, e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("repository is closed")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var contentTypeID any
	if e.ContentType.ID != 0 {
		contentTypeID = e.ContentType.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO cms_content_type (id, alias, icon) VALUES (?, ?, ?)`,
			e.ContentType.ID, e.ContentType.Alias, e.ContentType.Icon); err != nil {
			return fmt.Errorf("failed to save content type: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO cms_node (
		id, unique_id, node_object_type, parent_id, level, path, sort_order, trashed, text,
		content_type_id, creator_id, writer_id, create_date, update_date, published,
		template_alias, email
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Key, e.Kind.ObjectType(), e.ParentID, e.Level, e.Path, e.SortOrder,
		boolInt(e.Trashed), e.Name, contentTypeID, e.CreatorID, e.WriterID,
		formatTimestamp(e.CreateDate), formatTimestamp(e.UpdateDate), boolInt(e.Published),
		nullString(e.TemplateAlias), nullString(e.Email)); err != nil {
		return fmt.Errorf("failed to save node %d: %w", e.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cms_property WHERE node_id = ?`, e.ID); err != nil {
		return fmt.Errorf("failed to clear properties: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cms_property (node_id, alias, editor_alias, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare property insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range e.Properties {
		var value any
		if p.Value != nil {
			value = fmt.Sprint(p.Value)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, p.Alias, p.EditorAlias, value); err != nil {
			return fmt.Errorf("failed to save property %s: %w", p.Alias, err)
		}
	}

	return tx.Commit()
}

// SaveUser inserts or replaces a backoffice user.
func (r *SQLiteRepository) SaveUser(ctx context.Context, id int, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO cms_user (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", id, err)
	}
	return nil
}

// SaveURL records the published URL of a content node.
func (r *SQLiteRepository) SaveURL(ctx context.Context, id int, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO cms_url (node_id, url) VALUES (?, ?)`, id, url)
	if err != nil {
		return fmt.Errorf("failed to save url for %d: %w", id, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
