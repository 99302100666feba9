package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const dashboardTable = "dashboard"

var ErrNotFound = errors.New("dashboard not found")

// Record is one stored dashboard version.
type Record struct {
	ID      int64
	Title   string
	Slug    string
	UID     string
	Tags    []string
	Data    json.RawMessage
	Version int
	Created time.Time
	Updated time.Time
}

// Store keeps dashboards in SQLite keyed by numeric id and unique slug.
type Store struct {
	db     *sql.DB
	cache  *lru.Cache[int64, *Record]
	logger *zap.Logger
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(log *zap.Logger, path string, cacheSize int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s, err := New(log, db, cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle.
func New(log *zap.Logger, db *sql.DB, cacheSize int) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[int64, *Record](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{db: db, cache: cache, logger: log}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			uid TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			data BLOB NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created INTEGER NOT NULL,
			updated INTEGER NOT NULL
		);`, dashboardTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated);`, dashboardTable, dashboardTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `id, title, slug, uid, tags, data, version, created, updated`

// GetByID returns the dashboard with id or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	if r, ok := s.cache.Get(id); ok {
		return r.clone(), nil
	}
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, selectColumns, dashboardTable), id)
	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("get dashboard %d: %w", id, err)
	}
	s.cache.Add(r.ID, r.clone())
	return r, nil
}

// GetBySlug returns the dashboard stored under slug or ErrNotFound.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE slug = ?`, selectColumns, dashboardTable), slug)
	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("get dashboard %q: %w", slug, err)
	}
	s.cache.Add(r.ID, r.clone())
	return r, nil
}

// Insert stores r under its slug. An existing slug is overwritten and its
// version incremented; the id is kept.
func (s *Store) Insert(ctx context.Context, r *Record) (int64, error) {
	if r.Slug == "" {
		return 0, fmt.Errorf("slug is required")
	}
	if !json.Valid(r.Data) {
		return 0, fmt.Errorf("dashboard %q data is not valid JSON", r.Slug)
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return 0, fmt.Errorf("dashboard %q tags: %w", r.Slug, err)
	}
	now := time.Now().UTC().UnixMilli()

	var id int64
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (title, slug, uid, tags, data, version, created, updated)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			uid = excluded.uid,
			tags = excluded.tags,
			data = excluded.data,
			version = %[1]s.version + 1,
			updated = excluded.updated
		RETURNING id`, dashboardTable),
		r.Title, r.Slug, r.UID, string(tags), []byte(r.Data), now, now,
	).Scan(&id)
	if err != nil {
		s.logger.Error("Failed to insert dashboard", zap.String("slug", r.Slug), zap.Error(err))
		return 0, fmt.Errorf("insert dashboard %q: %w", r.Slug, err)
	}
	s.cache.Remove(id)
	s.logger.Debug("Stored dashboard", zap.Int64("id", id), zap.String("slug", r.Slug))
	return id, nil
}

// List returns every dashboard, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY updated DESC, id DESC`, selectColumns, dashboardTable))
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list dashboards: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	return out, nil
}

// clone copies r so cached records are never shared with callers.
func (r *Record) clone() *Record {
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Data != nil {
		c.Data = append(json.RawMessage(nil), r.Data...)
	}
	return &c
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                Record
		tags             string
		data             []byte
		created, updated int64
	)
	err := row.Scan(&r.ID, &r.Title, &r.Slug, &r.UID, &tags, &data, &r.Version, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of dashboard %d: %w", r.ID, err)
		}
	}
	r.Data = json.RawMessage(data)
	r.Created = time.UnixMilli(created).UTC()
	r.Updated = time.UnixMilli(updated).UTC()
	return &r, nil
}
