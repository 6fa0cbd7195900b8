package cms

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// sqliteSchema is the relational layout shared with the PostgreSQL repository.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cms_content_type (
	id    INTEGER PRIMARY KEY,
	alias TEXT NOT NULL,
	icon  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cms_user (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cms_node (
	id               INTEGER PRIMARY KEY,
	unique_id        TEXT NOT NULL,
	node_object_type TEXT NOT NULL,
	parent_id        INTEGER NOT NULL DEFAULT -1,
	level            INTEGER NOT NULL DEFAULT 1,
	path             TEXT NOT NULL,
	sort_order       INTEGER NOT NULL DEFAULT 0,
	trashed          INTEGER NOT NULL DEFAULT 0,
	text             TEXT NOT NULL DEFAULT '',
	content_type_id  INTEGER,
	creator_id       INTEGER NOT NULL DEFAULT 0,
	writer_id        INTEGER NOT NULL DEFAULT 0,
	create_date      TEXT,
	update_date      TEXT,
	published        INTEGER NOT NULL DEFAULT 0,
	template_alias   TEXT,
	email            TEXT
);

CREATE INDEX IF NOT EXISTS idx_cms_node_object_type ON cms_node(node_object_type);

CREATE TABLE IF NOT EXISTS cms_property (
	node_id     INTEGER NOT NULL,
	alias       TEXT NOT NULL,
	editor_alias TEXT NOT NULL DEFAULT '',
	value       TEXT,
	PRIMARY KEY (node_id, alias)
);

CREATE TABLE IF NOT EXISTS cms_url (
	node_id INTEGER PRIMARY KEY,
	url     TEXT NOT NULL
);
`

const nodeColumns = `n.id, n.unique_id, n.node_object_type, n.parent_id, n.level, n.path,
	n.sort_order, n.trashed, n.text, COALESCE(n.content_type_id, 0),
	COALESCE(t.alias, ''), COALESCE(t.icon, ''), n.creator_id, n.writer_id,
	n.create_date, n.update_date, n.published, n.template_alias, n.email`

// SQLiteRepository reads CMS entities from a SQLite database.
type SQLiteRepository struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Verify interface implementation at compile time
var _ Repository = (*SQLiteRepository)(nil)

// OpenSQLite opens (or creates) the SQLite CMS database at path.
// An empty path or ":memory:" opens an in-memory database.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// writer contention on file databases.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// EnsureSchema creates the CMS tables when missing.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for seeding and administration.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// IDsByKind implements Repository.
func (r *SQLiteRepository) IDsByKind(ctx context.Context, kind Kind) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("repository is closed")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT id FROM cms_node WHERE node_object_type = ? ORDER BY id`,
		kind.ObjectType())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s ids: %w", kind, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EntitiesByIDs implements Repository.
func (r *SQLiteRepository) EntitiesByIDs(ctx context.Context, kind Kind, ids []int) ([]*Entity, error) {
	if len(ids) == 0 {
		return []*Entity{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("repository is closed")
	}

	placeholders, args := inClause(ids)
	args = append([]any{kind.ObjectType()}, args...)

	query := `SELECT ` + nodeColumns + `
		FROM cms_node n LEFT JOIN cms_content_type t ON t.id = n.content_type_id
		WHERE n.node_object_type = ? AND n.id IN (` + placeholders + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s entities: %w", kind, err)
	}
	defer rows.Close()

	loaded := make(map[int]*Entity, len(ids))
	for rows.Next() {
		e, err := scanSQLiteNode(rows)
		if err != nil {
			return nil, err
		}
		loaded[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadProperties(ctx, ids, loaded); err != nil {
		return nil, err
	}

	return alignByID(ids, loaded), nil
}

func (r *SQLiteRepository) loadProperties(ctx context.Context, ids []int, loaded map[int]*Entity) error {
	placeholders, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT node_id, alias, editor_alias, value FROM cms_property
		 WHERE node_id IN (`+placeholders+`) ORDER BY node_id, alias`, args...)
	if err != nil {
		return fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			nodeID        int
			alias, editor string
			value         sql.NullString
		)
		if err := rows.Scan(&nodeID, &alias, &editor, &value); err != nil {
			return fmt.Errorf("failed to scan property: %w", err)
		}
		e, ok := loaded[nodeID]
		if !ok {
			continue
		}
		p := &Property{Alias: alias, EditorAlias: editor}
		if value.Valid {
			p.Value = value.String
		}
		e.Properties = append(e.Properties, p)
	}
	return rows.Err()
}

// SystemPropertyNames implements Repository.
func (r *SQLiteRepository) SystemPropertyNames(ctx context.Context) ([]string, error) {
	return SystemPropertyNames(), nil
}

// UserPropertyNames implements Repository.
func (r *SQLiteRepository) UserPropertyNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("repository is closed")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT alias FROM cms_property ORDER BY alias`)
	if err != nil {
		return nil, fmt.Errorf("failed to query property names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UserName implements Repository.
func (r *SQLiteRepository) UserName(ctx context.Context, id int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", fmt.Errorf("repository is closed")
	}

	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM cms_user WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return name, nil
}

// PublishedURL implements Repository.
func (r *SQLiteRepository) PublishedURL(ctx context.Context, id int) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", false, fmt.Errorf("repository is closed")
	}

	var url string
	err := r.db.QueryRowContext(ctx, `SELECT url FROM cms_url WHERE node_id = ?`, id).Scan(&url)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve url for %d: %w", id, err)
	}
	return url, true, nil
}

// Close implements Repository.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

func scanSQLiteNode(rows *sql.Rows) (*Entity, error) {
	var (
		e                      Entity
		objectType             string
		trashed, published     int
		createDate, updateDate sql.NullString
		template, email        sql.NullString
	)
	err := rows.Scan(&e.ID, &e.Key, &objectType, &e.ParentID, &e.Level, &e.Path,
		&e.SortOrder, &trashed, &e.Name, &e.ContentType.ID,
		&e.ContentType.Alias, &e.ContentType.Icon, &e.CreatorID, &e.WriterID,
		&createDate, &updateDate, &published, &template, &email)
	if err != nil {
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	e.Kind = kindFromObjectType(objectType)
	e.Trashed = trashed != 0
	e.Published = published != 0
	e.TemplateAlias = template.String
	e.Email = email.String
	e.CreateDate = parseTimestamp(createDate.String)
	e.UpdateDate = parseTimestamp(updateDate.String)
	return &e, nil
}

// parseTimestamp accepts RFC 3339 and the SQLite datetime() layout.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func inClause(ids []int) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
