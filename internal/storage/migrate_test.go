package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open(DriverCGO, dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("repeated migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task, err := repo.CreateTask(context.Background(), model.Task{Title: "before", Priority: 2, CreatedAt: now})
	if err != nil {
		t.Fatalf("insert before down: %v", err)
	}
	if _, err := repo.AddCompletion(context.Background(), model.CompletionEvent{TaskID: task.ID, CompletedAt: now, Hour: 12}); err != nil {
		t.Fatalf("add completion before down: %v", err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	created, err := repo.CreateTask(context.Background(), model.Task{
		Title:       "Roundtrip task",
		Description: "migration compatibility",
		Priority:    3,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}
	got, err := repo.GetTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got.Title != "Roundtrip task" {
		t.Fatalf("unexpected title after roundtrip: %q", got.Title)
	}
}
