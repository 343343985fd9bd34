package data

import "context"

// Loader batches one worker's partition of a dataset. Batches for an epoch
// are produced on a channel by a background goroutine so collation overlaps
// with the consumer's compute; the Prefetch depth bounds how far ahead it
// runs.
type Loader struct {
	dataset   Indexed
	sampler   Sampler
	batchSize int
	padID     int
	prefetch  int
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	BatchSize int
	PadID     int
	// Prefetch is the number of batches buffered ahead of the consumer.
	// Values below 1 fall back to 2.
	Prefetch int
}

// NewLoader creates a loader over the dataset using the sampler's epoch
// partitions.
func NewLoader(dataset Indexed, sampler Sampler, opts LoaderOptions) *Loader {
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	prefetch := opts.Prefetch
	if prefetch < 1 {
		prefetch = 2
	}
	return &Loader{
		dataset:   dataset,
		sampler:   sampler,
		batchSize: batchSize,
		padID:     opts.PadID,
		prefetch:  prefetch,
	}
}

// Steps returns the number of batches per epoch.
func (l *Loader) Steps() int {
	n := len(l.sampler.Indices(0))
	return (n + l.batchSize - 1) / l.batchSize
}

// Epoch returns a channel of collated batches for the given epoch. The
// channel is closed when the partition is exhausted or ctx is done.
func (l *Loader) Epoch(ctx context.Context, epoch int) <-chan Batch {
	out := make(chan Batch, l.prefetch)
	go func() {
		defer close(out)
		indices := l.sampler.Indices(epoch)
		for start := 0; start < len(indices); start += l.batchSize {
			end := start + l.batchSize
			if end > len(indices) {
				end = len(indices)
			}
			examples := make([]Example, 0, end-start)
			for _, idx := range indices[start:end] {
				examples = append(examples, l.dataset.Get(idx))
			}
			select {
			case out <- Collate(examples, l.padID):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
