// Package data implements the data preparation pipeline: label-masking
// tokenization of conversations, dataset construction, epoch sharding and
// batch collation.
package data

import (
	"fmt"

	"kiln/internal/chat"
	"kiln/internal/tokenizer"
)

// Ignore is the reserved label value instructing the loss to skip a
// position. Matches the -100 convention used by causal-LM training stacks.
const Ignore = -100

// Example is one tokenized training example. The three slices always have
// equal length; Labels is InputIDs with every non-assistant span overwritten
// by Ignore.
type Example struct {
	InputIDs      []int
	Labels        []int
	AttentionMask []int
}

// Len returns the sequence length of the example.
func (e Example) Len() int { return len(e.InputIDs) }

// MaskOptions controls tokenization.
type MaskOptions struct {
	// MaxLength truncates all fields to this many tokens, keeping the
	// prefix. Zero means no truncation.
	MaxLength int
}

// Tokenize renders a conversation to token ids and builds loss labels that
// keep assistant spans and mask everything else.
//
// The full conversation is rendered once with a trailing generation prompt.
// For every non-assistant turn the masked span is recomputed by re-rendering
// the turn prefix from scratch: start is the length of rendering turns
// [0,idx), end the length of rendering turns [0,idx] — with the generation
// prompt included in the end render exactly when the next turn is an
// assistant turn, so the assistant's opening markup is masked along with the
// preceding turn. Re-rendering prefixes instead of tracking offsets
// incrementally is deliberate: tokenization is not guaranteed to concatenate
// per-turn, so only a full re-render gives trustworthy boundaries.
func Tokenize(conv chat.Conversation, r tokenizer.Renderer, opts MaskOptions) (Example, error) {
	if len(conv) == 0 {
		return Example{}, fmt.Errorf("tokenize: empty conversation")
	}

	inputIDs, err := r.Render(conv, true)
	if err != nil {
		return Example{}, fmt.Errorf("tokenize: render: %w", err)
	}

	ex := Example{
		InputIDs:      inputIDs,
		Labels:        append([]int(nil), inputIDs...),
		AttentionMask: make([]int, len(inputIDs)),
	}
	for i := range ex.AttentionMask {
		ex.AttentionMask[i] = 1
	}

	for idx, turn := range conv {
		if turn.IsAssistant() {
			continue
		}

		start := 0
		if idx > 0 {
			prefix, err := r.Render(conv[:idx], false)
			if err != nil {
				return Example{}, fmt.Errorf("tokenize: render prefix [0:%d): %w", idx, err)
			}
			if err := checkPrefix(inputIDs, prefix); err != nil {
				return Example{}, fmt.Errorf("tokenize: turn %d: %w", idx, err)
			}
			start = len(prefix)
		}

		// Include the generation prompt in the span when the next turn is
		// assistant-authored: the prompt is template boilerplate, not a
		// learning target.
		withPrompt := idx+1 < len(conv) && conv[idx+1].IsAssistant()
		prefix, err := r.Render(conv[:idx+1], withPrompt)
		if err != nil {
			return Example{}, fmt.Errorf("tokenize: render prefix [0:%d]: %w", idx, err)
		}
		end := len(prefix)

		if end < start || end > len(inputIDs) {
			return Example{}, fmt.Errorf("tokenize: turn %d: span [%d:%d) outside sequence of %d tokens; renderer is not prefix-consistent", idx, start, end, len(inputIDs))
		}
		for i := start; i < end; i++ {
			ex.Labels[i] = Ignore
		}
	}

	if opts.MaxLength > 0 {
		ex = Truncate(ex, opts.MaxLength)
	}
	return ex, nil
}

// Truncate keeps the first n tokens of every field. n past the end leaves
// the example unchanged.
func Truncate(ex Example, n int) Example {
	if n >= ex.Len() {
		return ex
	}
	return Example{
		InputIDs:      ex.InputIDs[:n],
		Labels:        ex.Labels[:n],
		AttentionMask: ex.AttentionMask[:n],
	}
}

// checkPrefix verifies that render output for a turn prefix is a true token
// prefix of the full render. A mismatch means the masking boundaries would
// be wrong, which must fail fast rather than corrupt labels.
func checkPrefix(full, prefix []int) error {
	if len(prefix) > len(full) {
		return fmt.Errorf("prefix render longer than full render (%d > %d); renderer is not prefix-consistent", len(prefix), len(full))
	}
	for i, id := range prefix {
		if full[i] != id {
			return fmt.Errorf("prefix render diverges from full render at token %d; renderer is not prefix-consistent", i)
		}
	}
	return nil
}
