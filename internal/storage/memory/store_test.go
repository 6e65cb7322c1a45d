package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/planforge/planforge/internal/spec"
	"github.com/planforge/planforge/internal/storage"
)

func record(id, title string) *storage.Record {
	return &storage.Record{
		ID:     id,
		Spec:   spec.CanonicalSpec{Metadata: spec.Metadata{Title: title}},
		Status: spec.StatusDraft,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Create(ctx, record("a", "Plan A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create(ctx, record("a", "Plan A")); err == nil {
		t.Fatal("expected error on duplicate create")
	}

	rec, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Spec.Metadata.Title != "Plan A" || rec.Status != spec.StatusDraft {
		t.Errorf("record = %+v", rec)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Create(ctx, record("a", "Plan A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, _ := s.Get(ctx, "a")
	first.Status = spec.StatusApproved

	second, _ := s.Get(ctx, "a")
	if second.Status != spec.StatusDraft {
		t.Error("mutating a returned record leaked into the store")
	}
}

func TestUpdateLastWriteWins(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Create(ctx, record("a", "Plan A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := s.Get(ctx, "a")
	rec.Status = spec.StatusValidated
	if err := s.Update(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.Get(ctx, "a")
	if got.Status != spec.StatusValidated {
		t.Errorf("status = %s, want validated", got.Status)
	}

	if err := s.Update(ctx, record("missing", "x")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersAndPages(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Create(ctx, record(id, "Plan "+id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	rec, _ := s.Get(ctx, "b")
	rec.Status = spec.StatusApproved
	if err := s.Update(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, err := s.List(ctx, storage.ListOptions{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List() = %d records, err %v", len(all), err)
	}

	approved, _ := s.List(ctx, storage.ListOptions{Status: spec.StatusApproved})
	if len(approved) != 1 || approved[0].ID != "b" {
		t.Errorf("approved = %+v", approved)
	}

	paged, _ := s.List(ctx, storage.ListOptions{Limit: 2, Offset: 2})
	if len(paged) != 1 {
		t.Errorf("paged = %d records, want 1", len(paged))
	}

	empty, _ := s.List(ctx, storage.ListOptions{Offset: 10})
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}

func TestListClampsNegativePagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := s.Create(ctx, record(id, "Plan "+id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	tests := []struct {
		name string
		opts storage.ListOptions
		want int
	}{
		{"negative limit", storage.ListOptions{Limit: -1}, 2},
		{"negative offset", storage.ListOptions{Offset: -1}, 2},
		{"both negative", storage.ListOptions{Limit: -5, Offset: -5}, 2},
		{"negative offset with limit", storage.ListOptions{Limit: 1, Offset: -1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() = %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestAddComment(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Create(ctx, record("a", "Plan A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.AddComment(ctx, "a", &storage.Comment{ID: "c1", Author: "dana", Body: "looks good"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddComment(ctx, "a", &storage.Comment{ID: "c2", Author: "lee", Body: "needs work"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := s.Get(ctx, "a")
	if len(rec.Comments) != 2 || rec.Comments[0].Author != "dana" {
		t.Errorf("comments = %+v", rec.Comments)
	}

	if err := s.AddComment(ctx, "missing", &storage.Comment{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegrations(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetIntegration(ctx, "chat"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	cfg := []byte(`{"webhook_url":"https://chat.example.com/hook"}`)
	if err := s.SetIntegration(ctx, "chat", cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetIntegration(ctx, "chat")
	if err != nil || string(got) != string(cfg) {
		t.Errorf("GetIntegration = %s, err %v", got, err)
	}
}
