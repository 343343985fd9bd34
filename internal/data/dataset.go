package data

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"

	"kiln/internal/tokenizer"
)

// Indexed is an in-memory collection of tokenized examples, the contract
// between the preparation pipeline and the batching loader.
type Indexed interface {
	Len() int
	Get(i int) Example
}

// Dataset is the eager SFT dataset: every record is formatted and tokenized
// up front, before training begins, so epoch iteration is pure indexing.
type Dataset struct {
	examples []Example
}

// BuildOptions controls dataset construction.
type BuildOptions struct {
	// MaxLength is the optional truncation bound applied per example.
	MaxLength int
	// NumProc is the number of parallel tokenization workers. Values
	// below 1 mean serial.
	NumProc int
	// MaxSamples caps the dataset to a contiguous prefix of the source,
	// for smoke-testing. Zero means the full dataset.
	MaxSamples int
	// Progress renders a terminal progress bar while tokenizing.
	Progress bool
}

// Build tokenizes every record of src. Workers process disjoint contiguous
// partitions of the index space and write to pre-sized slots, so no state
// is shared between them; the first error aborts the build, since a
// malformed record means the masking cannot be trusted.
func Build(src RecordSource, r tokenizer.Renderer, opts BuildOptions) (*Dataset, error) {
	n := src.Len()
	if opts.MaxSamples > 0 && opts.MaxSamples < n {
		n = opts.MaxSamples
	}
	procs := opts.NumProc
	if procs < 1 {
		procs = 1
	}
	if procs > n {
		procs = n
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Tokenizing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	examples := make([]Example, n)
	errs := make([]error, procs)
	var wg sync.WaitGroup
	for p := 0; p < procs; p++ {
		lo := p * n / procs
		hi := (p + 1) * n / procs
		wg.Add(1)
		go func(p, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				conv, err := src.Get(i)
				if err != nil {
					errs[p] = fmt.Errorf("record %d: %w", i, err)
					return
				}
				ex, err := Tokenize(conv, r, MaskOptions{MaxLength: opts.MaxLength})
				if err != nil {
					errs[p] = fmt.Errorf("record %d: %w", i, err)
					return
				}
				examples[i] = ex
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}(p, lo, hi)
	}
	wg.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &Dataset{examples: examples}, nil
}

// FromExamples wraps pre-tokenized examples as a Dataset.
func FromExamples(examples []Example) *Dataset {
	return &Dataset{examples: examples}
}

func (d *Dataset) Len() int { return len(d.examples) }

func (d *Dataset) Get(i int) Example { return d.examples[i] }
