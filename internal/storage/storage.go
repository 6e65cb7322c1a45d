// Package storage defines the persistence contracts for specification
// records and integration configuration. Backends are injected at process
// start: the in-memory store for tests, the sqlite store for production.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/planforge/planforge/internal/spec"
)

// ErrNotFound is returned when a record or integration key does not exist.
var ErrNotFound = errors.New("not found")

// Record is one persisted specification with its review state.
type Record struct {
	ID        string             `json:"id"`
	Spec      spec.CanonicalSpec `json:"spec"`
	Rendered  string             `json:"rendered,omitempty"`
	Status    spec.Status        `json:"status"`
	Comments  []Comment          `json:"comments,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Comment is one append-only review comment.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions filters and pages List results. Negative Limit and Offset
// values are treated as zero.
type ListOptions struct {
	Status spec.Status
	Limit  int
	Offset int
}

// SpecStore persists specification records. Update is last-write-wins per
// id; there is no optimistic-concurrency check.
type SpecStore interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	AddComment(ctx context.Context, id string, c *Comment) error
	Close() error
}

// IntegrationStore persists outbound-integration configuration as opaque
// JSON blobs keyed by integration name ("chat", "issues").
type IntegrationStore interface {
	SetIntegration(ctx context.Context, name string, cfg []byte) error
	GetIntegration(ctx context.Context, name string) ([]byte, error)
}
