package storage

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "artifact.json")
	want := []byte(`{"epoch": 3}`)
	if err := (Local{}).Write(context.Background(), path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Local{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("read %q, want %q", got, want)
	}
}

func TestLocalMissing(t *testing.T) {
	t.Parallel()

	_, err := Local{}.Read(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file error = %v, want fs.ErrNotExist", err)
	}
}

func TestLocalOverwriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	for i := 0; i < 3; i++ {
		if err := (Local{}).Write(context.Background(), path, []byte{byte('a' + i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	got, err := Local{}.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "c" {
		t.Fatalf("final content = %q, want last write", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory holds %d entries, want just the artifact", len(entries))
	}
}

func TestMemStore(t *testing.T) {
	t.Parallel()

	m := NewMem()
	if _, err := m.Read(context.Background(), "x"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing object error = %v, want fs.ErrNotExist", err)
	}
	if err := m.Write(context.Background(), "x", []byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := m.Read(context.Background(), "x")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got[0] = 'X'
	again, _ := m.Read(context.Background(), "x")
	if string(again) != "one" {
		t.Fatal("mem store leaked its internal buffer to a reader")
	}
}

func TestOpenLocalScheme(t *testing.T) {
	t.Parallel()

	store, err := Open(context.Background(), "snapshots/run.json")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(Local); !ok {
		t.Fatalf("plain path opened %T, want Local", store)
	}
}
