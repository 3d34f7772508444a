package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreReadAndReplace(t *testing.T) {
	rows := [][]string{{"Fecha", "Área"}, {"2024-01-01", "IT"}}
	s := New(rows)

	got, err := s.ReadRows(context.Background())
	if err != nil || len(got) != 2 || got[1][1] != "IT" {
		t.Fatalf("unexpected rows: %v err=%v", got, err)
	}

	// Callers must not be able to mutate the store.
	got[1][1] = "HR"
	rows[1][1] = "HR"
	again, _ := s.ReadRows(context.Background())
	if again[1][1] != "IT" {
		t.Fatalf("store was mutated through a returned slice")
	}

	before, _ := s.Identity(context.Background())
	s.Replace([][]string{{"Fecha"}, {"2024-02-01"}})
	after, _ := s.Identity(context.Background())
	if before == after {
		t.Fatalf("identity should change after Replace: %q", after)
	}
}

func TestMemoryStoreEmpty(t *testing.T) {
	if _, err := New(nil).ReadRows(context.Background()); err == nil {
		t.Fatal("expected error for empty store")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFromFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(dir, "ideas.csv")
	content := "# exported\nFecha,Área,Nombre\n2024-01-01,IT,\"Ana\nBeto\"\n2024-01-02,RRHH\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	rows, _ := s.ReadRows(context.Background())
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %v", rows)
	}
	if rows[1][2] != "Ana\nBeto" {
		t.Fatalf("multi-line cell not preserved: %q", rows[1][2])
	}
	if len(rows[2]) != 2 {
		t.Fatalf("ragged rows should be kept: %v", rows[2])
	}
}
