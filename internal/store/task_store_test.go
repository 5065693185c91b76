package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"taskchat/internal/database"
	"taskchat/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	s := NewTaskStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, "u1", "Buy milk", "2% if they have it")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected assigned id")
	}
	if created.Status != models.TaskStatusPending {
		t.Errorf("Status = %s, want pending", created.Status)
	}

	got, err := s.Get(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Title != "Buy milk" || got.Description != "2% if they have it" {
		t.Errorf("got %#v", got)
	}
}

func TestTaskStoreUserIsolation(t *testing.T) {
	s := NewTaskStore(newTestDB(t))
	ctx := context.Background()

	task, err := s.Create(ctx, "alice", "Alice's task", "")
	if err != nil {
		t.Fatal(err)
	}

	// Reads and mutations from another user must all miss identically.
	if _, err := s.Get(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get as bob = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(ctx, "bob", task.ID, "hijacked"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update as bob = %v, want ErrNotFound", err)
	}
	if _, err := s.Complete(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Complete as bob = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete as bob = %v, want ErrNotFound", err)
	}

	got, err := s.Get(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("alice's task gone: %v", err)
	}
	if got.Title != "Alice's task" || got.Status != models.TaskStatusPending {
		t.Errorf("alice's task modified: %#v", got)
	}

	tasks, err := s.List(ctx, "bob", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Errorf("bob sees %d tasks, want 0", len(tasks))
	}
}

func TestTaskStoreListOrderAndFilter(t *testing.T) {
	s := NewTaskStore(newTestDB(t))
	ctx := context.Background()

	first, _ := s.Create(ctx, "u1", "first", "")
	second, _ := s.Create(ctx, "u1", "second", "")
	third, _ := s.Create(ctx, "u1", "third", "")

	if _, err := s.Complete(ctx, "u1", second.ID); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx, "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != first.ID || all[1].ID != second.ID || all[2].ID != third.ID {
		t.Errorf("list not in creation order: %v, %v, %v", all[0].ID, all[1].ID, all[2].ID)
	}

	pending := models.TaskStatusPending
	open, err := s.List(ctx, "u1", &pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Errorf("pending len = %d, want 2", len(open))
	}

	completed := models.TaskStatusCompleted
	done, err := s.List(ctx, "u1", &completed)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].ID != second.ID {
		t.Errorf("completed filter wrong: %#v", done)
	}
}

func TestTaskStoreCompleteIdempotent(t *testing.T) {
	s := NewTaskStore(newTestDB(t))
	ctx := context.Background()

	task, _ := s.Create(ctx, "u1", "walk dog", "")

	first, err := s.Complete(ctx, "u1", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsCompleted() {
		t.Error("task should be completed")
	}
	second, err := s.Complete(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("second Complete error: %v", err)
	}
	if !second.IsCompleted() {
		t.Error("task should stay completed")
	}
}

func TestTaskStoreDelete(t *testing.T) {
	s := NewTaskStore(newTestDB(t))
	ctx := context.Background()

	task, _ := s.Create(ctx, "u1", "old", "")
	if err := s.Delete(ctx, "u1", task.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.Get(ctx, "u1", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "u1", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
