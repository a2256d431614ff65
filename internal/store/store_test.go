package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestNew_Schema(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		kind string
		name string
	}{
		{"table", "runs"},
		{"table", "detections"},
		{"table", "keypoints"},
		{"index", "idx_detections_run_id"},
		{"index", "idx_runs_started_at"},
	}
	for _, tt := range tests {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = ? AND name = ?", tt.kind, tt.name,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s %q missing: %v", tt.kind, tt.name, err)
		}
	}

	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion() = %d, want %d", v, len(migrations))
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	run := &Run{Input: "clip.mp4", Mode: "video", Detector: "mock"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := s.Runs().GetByID(run.ID); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}

func TestNew_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.DB().Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if s, err := New(path); err == nil {
		s.Close()
		t.Fatal("New() should refuse a schema from a newer build")
	}
}

func TestStore_ForeignKeysOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	s.DB().SetMaxOpenConns(4)

	conns := make([]interface{ Close() error }, 0, 3)
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < 3; i++ {
		c, err := s.DB().Conn(context.Background())
		if err != nil {
			t.Fatalf("Conn() error = %v", err)
		}
		conns = append(conns, c)

		var on int
		if err := c.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&on); err != nil {
			t.Fatalf("PRAGMA foreign_keys: %v", err)
		}
		if on != 1 {
			t.Errorf("connection %d has foreign keys off", i)
		}
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("queries should fail after Close")
	}
}
