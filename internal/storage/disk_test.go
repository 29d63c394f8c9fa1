package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"directory", []string{sub}, 3},
		{"file and directory", []string{f1, sub}, 8},
		{"missing skipped", []string{f1, filepath.Join(dir, "nonexistent"), sub}, 8},
		{"empty skipped", []string{"", f1}, 5},
	}
	for _, tt := range tests {
		got, err := DiskUsageBytes(tt.paths...)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %d bytes, want %d", tt.name, got, tt.want)
		}
	}
}

func TestMeasureUsage_IncludesWAL(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "journal.db")
	for name, size := range map[string]int{db: 4, db + "-wal": 3, db + "-shm": 2} {
		if err := os.WriteFile(name, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	index := filepath.Join(dir, "bleve")
	if err := os.MkdirAll(index, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(index, "store"), make([]byte, 10), 0644); err != nil {
		t.Fatal(err)
	}

	u, err := MeasureUsage(db, index)
	if err != nil {
		t.Fatal(err)
	}
	if u.DatabaseBytes != 9 || u.IndexBytes != 10 || u.Total() != 19 {
		t.Errorf("got %+v", u)
	}
}
