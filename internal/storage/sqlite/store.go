// Package sqlite provides a SQLite-backed SpecStore and IntegrationStore.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/planforge/planforge/internal/spec"
	"github.com/planforge/planforge/internal/storage"
)

// Store is a SQLite implementation of SpecStore and IntegrationStore.
type Store struct {
	db *sqlx.DB
}

var (
	_ storage.SpecStore        = (*Store)(nil)
	_ storage.IntegrationStore = (*Store)(nil)
)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS specs (
			id TEXT PRIMARY KEY,
			spec TEXT NOT NULL,
			rendered TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			spec_id TEXT NOT NULL,
			author TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (spec_id) REFERENCES specs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS integrations (
			name TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_specs_status ON specs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_spec ON comments(spec_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec *storage.Record) error {
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt

	specJSON, err := json.Marshal(rec.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO specs (id, spec, rendered, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(specJSON), rec.Rendered, string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert spec: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	row := s.db.QueryRowxContext(ctx,
		`SELECT id, spec, rendered, status, created_at, updated_at FROM specs WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spec %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if rec.Comments, err = s.comments(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	query := `SELECT id, spec, rendered, status, created_at, updated_at FROM specs`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at`
	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list specs: %w", err)
	}
	defer rows.Close()

	var result []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if rec.Comments, err = s.comments(ctx, rec.ID); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Update replaces the stored record wholesale. Last write wins: concurrent
// updates to the same id silently clobber each other.
func (s *Store) Update(ctx context.Context, rec *storage.Record) error {
	rec.UpdatedAt = time.Now()

	specJSON, err := json.Marshal(rec.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE specs SET spec = ?, rendered = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(specJSON), rec.Rendered, string(rec.Status), rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update spec: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("spec %s: %w", rec.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AddComment(ctx context.Context, id string, c *storage.Comment) error {
	c.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, spec_id, author, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, id, c.Author, c.Body, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE specs SET updated_at = ? WHERE id = ?`, c.CreatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch spec: %w", err)
	}
	return nil
}

func (s *Store) SetIntegration(ctx context.Context, name string, cfg []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO integrations (name, config, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		name, string(cfg), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store integration config: %w", err)
	}
	return nil
}

func (s *Store) GetIntegration(ctx context.Context, name string) ([]byte, error) {
	var cfg string
	err := s.db.QueryRowxContext(ctx,
		`SELECT config FROM integrations WHERE name = ?`, name).Scan(&cfg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("integration %s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integration config: %w", err)
	}
	return []byte(cfg), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) comments(ctx context.Context, id string) ([]storage.Comment, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, author, body, created_at FROM comments WHERE spec_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	defer rows.Close()

	var comments []storage.Comment
	for rows.Next() {
		var c storage.Comment
		if err := rows.Scan(&c.ID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*storage.Record, error) {
	var (
		rec      storage.Record
		specJSON string
		rendered sql.NullString
		status   string
	)
	if err := row.Scan(&rec.ID, &specJSON, &rendered, &status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan spec: %w", err)
	}
	if err := json.Unmarshal([]byte(specJSON), &rec.Spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spec: %w", err)
	}
	rec.Rendered = rendered.String
	rec.Status = spec.Status(status)
	return &rec, nil
}
