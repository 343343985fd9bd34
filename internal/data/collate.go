package data

// Batch is a rectangular group of examples produced by right-padding every
// field to the longest example in the batch. A batch is transient: it is
// owned by the training step that consumes it and never retained.
type Batch struct {
	InputIDs      [][]int
	Labels        [][]int
	AttentionMask [][]int
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int { return len(b.InputIDs) }

// Collate pads a list of examples to a rectangular batch. InputIDs are
// padded with padID, AttentionMask with 0 and Labels with Ignore, so padded
// positions neither attend nor contribute loss. Examples are only ever
// padded here, never truncated.
func Collate(examples []Example, padID int) Batch {
	maxLen := 0
	for _, ex := range examples {
		if ex.Len() > maxLen {
			maxLen = ex.Len()
		}
	}

	b := Batch{
		InputIDs:      make([][]int, len(examples)),
		Labels:        make([][]int, len(examples)),
		AttentionMask: make([][]int, len(examples)),
	}
	for i, ex := range examples {
		b.InputIDs[i] = padTo(ex.InputIDs, maxLen, padID)
		b.Labels[i] = padTo(ex.Labels, maxLen, Ignore)
		b.AttentionMask[i] = padTo(ex.AttentionMask, maxLen, 0)
	}
	return b
}

func padTo(ids []int, n, pad int) []int {
	out := make([]int, n)
	copy(out, ids)
	for i := len(ids); i < n; i++ {
		out[i] = pad
	}
	return out
}
