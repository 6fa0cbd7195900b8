package cms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

// Pool is the subset of *pgxpool.Pool the repository uses.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

const postgresSchema = `
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
	unique_id        UUID NOT NULL,
	node_object_type TEXT NOT NULL,
	parent_id        INTEGER NOT NULL DEFAULT -1,
	level            INTEGER NOT NULL DEFAULT 1,
	path             TEXT NOT NULL,
	sort_order       INTEGER NOT NULL DEFAULT 0,
	trashed          BOOLEAN NOT NULL DEFAULT FALSE,
	text             TEXT NOT NULL DEFAULT '',
	content_type_id  INTEGER REFERENCES cms_content_type(id),
	creator_id       INTEGER NOT NULL DEFAULT 0,
	writer_id        INTEGER NOT NULL DEFAULT 0,
	create_date      TIMESTAMPTZ,
	update_date      TIMESTAMPTZ,
	published        BOOLEAN NOT NULL DEFAULT FALSE,
	template_alias   TEXT,
	email            TEXT
);
CREATE INDEX IF NOT EXISTS idx_cms_node_object_type ON cms_node(node_object_type);
CREATE TABLE IF NOT EXISTS cms_property (
	node_id      INTEGER NOT NULL REFERENCES cms_node(id) ON DELETE CASCADE,
	alias        TEXT NOT NULL,
	editor_alias TEXT NOT NULL DEFAULT '',
	value        TEXT,
	PRIMARY KEY (node_id, alias)
);
CREATE TABLE IF NOT EXISTS cms_url (
	node_id INTEGER PRIMARY KEY REFERENCES cms_node(id) ON DELETE CASCADE,
	url     TEXT NOT NULL
);
`

const pgTimestamp = `'YYYY-MM-DD"T"HH24:MI:SS"Z"'`

const pgNodeQuery = `SELECT n.id, n.unique_id::text, n.node_object_type, n.parent_id, n.level, n.path,
	n.sort_order, n.trashed, n.text, COALESCE(n.content_type_id, 0),
	COALESCE(t.alias, ''), COALESCE(t.icon, ''), n.creator_id, n.writer_id,
	COALESCE(to_char(n.create_date AT TIME ZONE 'UTC', ` + pgTimestamp + `), ''),
	COALESCE(to_char(n.update_date AT TIME ZONE 'UTC', ` + pgTimestamp + `), ''),
	n.published, COALESCE(n.template_alias, ''), COALESCE(n.email, '')
	FROM cms_node n LEFT JOIN cms_content_type t ON t.id = n.content_type_id
	WHERE n.node_object_type = $1 AND n.id = ANY($2)`

// PostgresRepository reads CMS entities from PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool Pool
}

// Verify interface implementation at compile time
var _ Repository = (*PostgresRepository)(nil)

// OpenPostgres connects a pool to the database at url.
func OpenPostgres(ctx context.Context, url string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, cmserrors.ConfigError("invalid postgres dsn", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return connectPostgres(ctx, pool)
}

// connectPostgres pings the server before handing out the repository.
// pgxpool dials lazily, so an unreachable server is only seen here.
func connectPostgres(ctx context.Context, pool Pool) (*PostgresRepository, error) {
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresRepository(pool), nil
}

// NewPostgresRepository wraps an existing pool.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the CMS tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// IDsByKind implements Repository.
func (r *PostgresRepository) IDsByKind(ctx context.Context, kind Kind) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT id FROM cms_node WHERE node_object_type = $1 ORDER BY id`,
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
func (r *PostgresRepository) EntitiesByIDs(ctx context.Context, kind Kind, ids []int) ([]*Entity, error) {
	if len(ids) == 0 {
		return []*Entity{}, nil
	}
	keys := toInt64(ids)

	rows, err := r.pool.Query(ctx, pgNodeQuery, kind.ObjectType(), keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s entities: %w", kind, err)
	}
	loaded := make(map[int]*Entity, len(ids))
	for rows.Next() {
		var (
			e                      Entity
			objectType             string
			createDate, updateDate string
		)
		if err := rows.Scan(&e.ID, &e.Key, &objectType, &e.ParentID, &e.Level, &e.Path,
			&e.SortOrder, &e.Trashed, &e.Name, &e.ContentType.ID,
			&e.ContentType.Alias, &e.ContentType.Icon, &e.CreatorID, &e.WriterID,
			&createDate, &updateDate, &e.Published, &e.TemplateAlias, &e.Email); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		e.Kind = kindFromObjectType(objectType)
		e.CreateDate = parseTimestamp(createDate)
		e.UpdateDate = parseTimestamp(updateDate)
		loaded[e.ID] = &e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	props, err := r.pool.Query(ctx,
		`SELECT node_id, alias, editor_alias, value FROM cms_property
		 WHERE node_id = ANY($1) ORDER BY node_id, alias`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer props.Close()

	for props.Next() {
		var (
			nodeID        int
			alias, editor string
			value         *string
		)
		if err := props.Scan(&nodeID, &alias, &editor, &value); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		e, ok := loaded[nodeID]
		if !ok {
			continue
		}
		p := &Property{Alias: alias, EditorAlias: editor}
		if value != nil {
			p.Value = *value
		}
		e.Properties = append(e.Properties, p)
	}
	if err := props.Err(); err != nil {
		return nil, err
	}

	return alignByID(ids, loaded), nil
}

// SystemPropertyNames implements Repository.
func (r *PostgresRepository) SystemPropertyNames(ctx context.Context) ([]string, error) {
	return SystemPropertyNames(), nil
}

// UserPropertyNames implements Repository.
func (r *PostgresRepository) UserPropertyNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT alias FROM cms_property ORDER BY alias`)
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
func (r *PostgresRepository) UserName(ctx context.Context, id int) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM cms_user WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return name, nil
}

// PublishedURL implements Repository.
func (r *PostgresRepository) PublishedURL(ctx context.Context, id int) (string, bool, error) {
	var url string
	err := r.pool.QueryRow(ctx, `SELECT url FROM cms_url WHERE node_id = $1`, id).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve url for %d: %w", id, err)
	}
	return url, true, nil
}

// Close implements Repository.
func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func toInt64(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
