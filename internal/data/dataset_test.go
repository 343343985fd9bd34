package data

import (
	"fmt"
	"testing"

	"kiln/internal/chat"
)

// memSource serves generated conversations, optionally failing one index.
type memSource struct {
	n       int
	failAt  int
	failErr error
}

func (s *memSource) Len() int { return s.n }

func (s *memSource) Get(i int) (chat.Conversation, error) {
	if s.failErr != nil && i == s.failAt {
		return nil, s.failErr
	}
	return chat.Conversation{
		{Role: chat.RoleUser, Content: fmt.Sprintf("question %d", i)},
		{Role: chat.RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
	}, nil
}

func TestBuildParallelMatchesSerial(t *testing.T) {
	t.Parallel()

	src := &memSource{n: 23}
	serial, err := Build(src, byteRenderer(), BuildOptions{})
	if err != nil {
		t.Fatalf("serial build: %v", err)
	}
	parallel, err := Build(src, byteRenderer(), BuildOptions{NumProc: 4})
	if err != nil {
		t.Fatalf("parallel build: %v", err)
	}
	if serial.Len() != 23 || parallel.Len() != 23 {
		t.Fatalf("lens = %d / %d, want 23", serial.Len(), parallel.Len())
	}
	for i := 0; i < serial.Len(); i++ {
		a, b := serial.Get(i), parallel.Get(i)
		if a.Len() != b.Len() {
			t.Fatalf("example %d differs between serial and parallel build", i)
		}
		for j := range a.InputIDs {
			if a.InputIDs[j] != b.InputIDs[j] || a.Labels[j] != b.Labels[j] {
				t.Fatalf("example %d token %d differs between serial and parallel build", i, j)
			}
		}
	}
}

func TestBuildMaxSamples(t *testing.T) {
	t.Parallel()

	ds, err := Build(&memSource{n: 23}, byteRenderer(), BuildOptions{MaxSamples: 5, NumProc: 8})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ds.Len() != 5 {
		t.Fatalf("len = %d, want 5", ds.Len())
	}
}

func TestBuildMaxLength(t *testing.T) {
	t.Parallel()

	ds, err := Build(&memSource{n: 3}, byteRenderer(), BuildOptions{MaxLength: 8})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for i := 0; i < ds.Len(); i++ {
		if got := ds.Get(i).Len(); got != 8 {
			t.Fatalf("example %d has %d tokens, want 8", i, got)
		}
	}
}

func TestBuildPropagatesSourceError(t *testing.T) {
	t.Parallel()

	src := &memSource{n: 10, failAt: 6, failErr: fmt.Errorf("boom")}
	if _, err := Build(src, byteRenderer(), BuildOptions{NumProc: 3}); err == nil {
		t.Fatal("expected build error from failing record")
	}
}

func TestBuildEmptySource(t *testing.T) {
	t.Parallel()

	ds, err := Build(&memSource{n: 0}, byteRenderer(), BuildOptions{NumProc: 4})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ds.Len() != 0 {
		t.Fatalf("len = %d, want 0", ds.Len())
	}
}
