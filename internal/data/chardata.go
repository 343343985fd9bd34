package data

// CharDataset exposes a token-id corpus as overlapping next-character
// prediction windows: example i is inputs corpus[i:i+block] with targets
// corpus[i+1:i+block+1]. Windows are materialized lazily since they are
// pure slices of the corpus.
type CharDataset struct {
	ids   []int
	block int
}

// NewCharDataset wraps an encoded corpus with the given context window.
func NewCharDataset(ids []int, blockSize int) *CharDataset {
	if blockSize < 1 {
		blockSize = 1
	}
	return &CharDataset{ids: ids, block: blockSize}
}

func (d *CharDataset) Len() int {
	n := len(d.ids) - d.block
	if n < 0 {
		return 0
	}
	return n
}

func (d *CharDataset) Get(i int) Example {
	x := d.ids[i : i+d.block]
	y := d.ids[i+1 : i+d.block+1]
	mask := make([]int, d.block)
	for j := range mask {
		mask[j] = 1
	}
	return Example{
		InputIDs:      append([]int(nil), x...),
		Labels:        append([]int(nil), y...),
		AttentionMask: mask,
	}
}
