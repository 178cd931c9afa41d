package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openInstalled(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_NoSchemaUntilCreate(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	installed, err := s.SchemaInstalled(context.Background())
	if err != nil {
		t.Fatalf("SchemaInstalled() failed: %v", err)
	}
	if installed {
		t.Error("schema should not exist before CreateSchema")
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	// Creating again must not fail or lose data
	if _, err := s.WriteEvent(ctx, testEvent(1, 10)); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("second CreateSchema() failed: %v", err)
	}

	count, err := s.CountEvents(ctx, 1)
	if err != nil {
		t.Fatalf("CountEvents() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event after idempotent create, got %d", count)
	}
}

func TestDropSchema_RemovesTables(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	if err := s.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema() failed: %v", err)
	}

	installed, err := s.SchemaInstalled(ctx)
	if err != nil {
		t.Fatalf("SchemaInstalled() failed: %v", err)
	}
	if installed {
		t.Error("schema should not exist after DropSchema")
	}

	// Dropping twice is fine
	if err := s.DropSchema(ctx); err != nil {
		t.Errorf("second DropSchema() failed: %v", err)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
	}
	for name, expected := range checks {
		if err := s.verifyPragma(name, expected); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}
