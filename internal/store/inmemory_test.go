package store

import (
	"context"
	"testing"

	"github.com/stillpoint-app/stillpoint/internal/script"
)

func TestInMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	rec, err := s.Create(ctx, Record{Spec: script.MeditationSpec{Purpose: script.PurposeSleep, Repetitions: 3}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("Create() assigned no ID")
	}
	if rec.Status != StatusDraft {
		t.Fatalf("new record status = %q, want draft", rec.Status)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Spec.Purpose != script.PurposeSleep {
		t.Fatalf("Get() purpose = %q, want sleep", got.Spec.Purpose)
	}

	got.Status = StatusReady
	got.AudioURL = "http://host/v1/audio/a.mp3"
	updated, err := s.Update(ctx, got)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != StatusReady || updated.AudioURL == "" {
		t.Fatalf("Update() did not persist changes: %+v", updated)
	}

	list, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() length = %d, want 1", len(list))
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); err != ErrNotFound {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	if _, err := s.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(ctx, Record{ID: "missing"}); err != ErrNotFound {
		t.Fatalf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}
