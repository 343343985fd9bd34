package data

import (
	"reflect"
	"sort"
	"testing"
)

func TestSamplerDisjointEqualShares(t *testing.T) {
	t.Parallel()

	// 10 examples over 2 workers: exactly 5 each, no overlap, full cover.
	seen := map[int]int{}
	for rank := 0; rank < 2; rank++ {
		s := Sampler{Size: 10, Rank: rank, World: 2, Shuffle: true, Seed: 7}
		idx := s.Indices(3)
		if len(idx) != 5 {
			t.Fatalf("rank %d got %d indices, want 5", rank, len(idx))
		}
		for _, i := range idx {
			seen[i]++
		}
	}
	if len(seen) != 10 {
		t.Fatalf("ranks cover %d distinct indices, want 10", len(seen))
	}
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("index %d assigned %d times", i, n)
		}
	}
}

func TestSamplerPadsByWrapping(t *testing.T) {
	t.Parallel()

	total := 0
	seen := map[int]bool{}
	for rank := 0; rank < 3; rank++ {
		s := Sampler{Size: 7, Rank: rank, World: 3}
		idx := s.Indices(0)
		if len(idx) != 3 {
			t.Fatalf("rank %d got %d indices, want 3", rank, len(idx))
		}
		total += len(idx)
		for _, i := range idx {
			if i < 0 || i >= 7 {
				t.Fatalf("rank %d produced out-of-range index %d", rank, i)
			}
			seen[i] = true
		}
	}
	if total != 9 {
		t.Fatalf("padded total = %d, want 9", total)
	}
	if len(seen) != 7 {
		t.Fatalf("wrapping dropped examples: covered %d of 7", len(seen))
	}
}

func TestSamplerDropLast(t *testing.T) {
	t.Parallel()

	total := 0
	for rank := 0; rank < 3; rank++ {
		s := Sampler{Size: 7, Rank: rank, World: 3, DropLast: true}
		total += len(s.Indices(0))
	}
	if total != 6 {
		t.Fatalf("drop_last total = %d, want 6", total)
	}
}

func TestSamplerEpochReshuffles(t *testing.T) {
	t.Parallel()

	s := Sampler{Size: 64, World: 1, Shuffle: true, Seed: 1}
	a := s.Indices(1)
	b := s.Indices(2)
	if reflect.DeepEqual(a, b) {
		t.Fatal("epochs 1 and 2 produced the same permutation")
	}
	again := s.Indices(1)
	if !reflect.DeepEqual(a, again) {
		t.Fatal("same epoch produced different permutations")
	}

	sort.Ints(a)
	sort.Ints(b)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("shuffle changed the index set, not just the order")
	}
}

func TestSamplerNoShuffleKeepsOrder(t *testing.T) {
	t.Parallel()

	s := Sampler{Size: 4, World: 1}
	if got := s.Indices(5); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Fatalf("unshuffled order = %v", got)
	}
}
