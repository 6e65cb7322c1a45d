// Package memory provides an in-memory SpecStore and IntegrationStore used
// in tests and as the default backend when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/planforge/planforge/internal/storage"
)

// Store is an in-memory implementation of SpecStore and IntegrationStore.
type Store struct {
	mu           sync.RWMutex
	records      map[string]*storage.Record
	integrations map[string][]byte
}

var (
	_ storage.SpecStore        = (*Store)(nil)
	_ storage.IntegrationStore = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:      make(map[string]*storage.Record),
		integrations: make(map[string][]byte),
	}
}

func (s *Store) Create(ctx context.Context, rec *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("spec %s already exists", rec.ID)
	}

	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.records[rec.ID] = clone(rec)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("spec %s: %w", id, storage.ErrNotFound)
	}
	return clone(rec), nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.Record
	for _, rec := range s.records {
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		result = append(result, clone(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(result) {
		return []*storage.Record{}, nil
	}
	end := start + opts.Limit
	if opts.Limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// Update replaces the stored record wholesale. Last write wins.
func (s *Store) Update(ctx context.Context, rec *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.records[rec.ID]
	if !exists {
		return fmt.Errorf("spec %s: %w", rec.ID, storage.ErrNotFound)
	}

	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now()
	s.records[rec.ID] = clone(rec)
	return nil
}

func (s *Store) AddComment(ctx context.Context, id string, c *storage.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return fmt.Errorf("spec %s: %w", id, storage.ErrNotFound)
	}

	c.CreatedAt = time.Now()
	rec.Comments = append(rec.Comments, *c)
	rec.UpdatedAt = c.CreatedAt
	return nil
}

func (s *Store) SetIntegration(ctx context.Context, name string, cfg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.integrations[name] = append([]byte(nil), cfg...)
	return nil
}

func (s *Store) GetIntegration(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.integrations[name]
	if !exists {
		return nil, fmt.Errorf("integration %s: %w", name, storage.ErrNotFound)
	}
	return append([]byte(nil), cfg...), nil
}

func (s *Store) Close() error {
	return nil
}

// clone copies a record so callers never share the stored value.
func clone(rec *storage.Record) *storage.Record {
	out := *rec
	out.Comments = append([]storage.Comment(nil), rec.Comments...)
	return &out
}
