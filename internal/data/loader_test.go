package data

import (
	"context"
	"testing"
)

func rangeDataset(n, length int) *Dataset {
	examples := make([]Example, n)
	for i := range examples {
		ids := make([]int, length)
		mask := make([]int, length)
		for j := range ids {
			ids[j] = i
			mask[j] = 1
		}
		examples[i] = Example{InputIDs: ids, Labels: ids, AttentionMask: mask}
	}
	return FromExamples(examples)
}

func TestLoaderStepsAndCoverage(t *testing.T) {
	t.Parallel()

	ds := rangeDataset(10, 3)
	l := NewLoader(ds, Sampler{Size: 10, World: 1}, LoaderOptions{BatchSize: 4})
	if l.Steps() != 3 {
		t.Fatalf("steps = %d, want 3", l.Steps())
	}

	seen := map[int]bool{}
	batches := 0
	for b := range l.Epoch(context.Background(), 0) {
		batches++
		for _, row := range b.InputIDs {
			seen[row[0]] = true
		}
	}
	if batches != 3 {
		t.Fatalf("got %d batches, want 3", batches)
	}
	if len(seen) != 10 {
		t.Fatalf("epoch covered %d of 10 examples", len(seen))
	}
}

func TestLoaderCancel(t *testing.T) {
	t.Parallel()

	ds := rangeDataset(100, 2)
	l := NewLoader(ds, Sampler{Size: 100, World: 1}, LoaderOptions{BatchSize: 1, Prefetch: 1})

	ctx, cancel := context.WithCancel(context.Background())
	ch := l.Epoch(ctx, 0)
	<-ch
	cancel()

	// The producer must close the channel instead of blocking forever on a
	// consumer that went away.
	for range ch {
	}
}

func TestLoaderRankPartition(t *testing.T) {
	t.Parallel()

	ds := rangeDataset(10, 2)
	seen := map[int]int{}
	for rank := 0; rank < 2; rank++ {
		l := NewLoader(ds, Sampler{Size: 10, Rank: rank, World: 2, Shuffle: true, Seed: 3}, LoaderOptions{BatchSize: 3})
		for b := range l.Epoch(context.Background(), 1) {
			for _, row := range b.InputIDs {
				seen[row[0]]++
			}
		}
	}
	if len(seen) != 10 {
		t.Fatalf("two ranks covered %d of 10 examples", len(seen))
	}
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("example %d consumed %d times across ranks", i, n)
		}
	}
}
