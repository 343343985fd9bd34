package data

import (
	"fmt"
	"reflect"
	"testing"

	"kiln/internal/chat"
	"kiln/internal/tokenizer"
)

// scriptedRenderer reproduces a fixed token-length schedule for the
// two-turn conversation [user, assistant]: 5 tokens for the user turn with
// the generation prompt, 3 without, 9 for the full render.
type scriptedRenderer struct{}

func (scriptedRenderer) Render(turns []chat.Turn, addGenerationPrompt bool) ([]int, error) {
	var n int
	switch {
	case len(turns) == 1 && addGenerationPrompt:
		n = 5
	case len(turns) == 1:
		n = 3
	case len(turns) == 2 && addGenerationPrompt:
		n = 9
	case len(turns) == 2:
		n = 7
	default:
		return nil, fmt.Errorf("unexpected render of %d turns", len(turns))
	}
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids, nil
}

func (scriptedRenderer) PadID() int { return 0 }

func twoTurn() chat.Conversation {
	return chat.Conversation{
		{Role: chat.RoleUser, Content: "2+2?"},
		{Role: chat.RoleAssistant, Content: "4"},
	}
}

func TestTokenizeMasksUserAndGenerationPrompt(t *testing.T) {
	t.Parallel()

	ex, err := Tokenize(twoTurn(), scriptedRenderer{}, MaskOptions{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if ex.Len() != 9 {
		t.Fatalf("expected 9 tokens, got %d", ex.Len())
	}
	for i := 0; i < 5; i++ {
		if ex.Labels[i] != Ignore {
			t.Fatalf("labels[%d] = %d, want IGNORE: user turn and generation prompt must be masked", i, ex.Labels[i])
		}
	}
	for i := 5; i < 9; i++ {
		if ex.Labels[i] != ex.InputIDs[i] {
			t.Fatalf("labels[%d] = %d, want %d: assistant span must stay learnable", i, ex.Labels[i], ex.InputIDs[i])
		}
	}
	for i, m := range ex.AttentionMask {
		if m != 1 {
			t.Fatalf("attention_mask[%d] = %d, want 1", i, m)
		}
	}
}

func byteRenderer() tokenizer.ChatML {
	return tokenizer.ChatML{Tok: tokenizer.ByteTokenizer{}}
}

func multiTurn() chat.Conversation {
	return chat.Conversation{
		{Role: chat.RoleSystem, Content: "be brief"},
		{Role: chat.RoleUser, Content: "2+2?"},
		{Role: chat.RoleAssistant, Content: "4"},
		{Role: chat.RoleUser, Content: "and 3+3?"},
		{Role: chat.RoleAssistant, Content: "6"},
	}
}

func TestTokenizeLengthInvariant(t *testing.T) {
	t.Parallel()

	for _, maxLen := range []int{0, 1, 7, 64, 100000} {
		ex, err := Tokenize(multiTurn(), byteRenderer(), MaskOptions{MaxLength: maxLen})
		if err != nil {
			t.Fatalf("tokenize max_length=%d: %v", maxLen, err)
		}
		if len(ex.InputIDs) != len(ex.Labels) || len(ex.InputIDs) != len(ex.AttentionMask) {
			t.Fatalf("max_length=%d: field lengths diverge: %d/%d/%d", maxLen, len(ex.InputIDs), len(ex.Labels), len(ex.AttentionMask))
		}
		if maxLen > 0 && ex.Len() > maxLen {
			t.Fatalf("max_length=%d: got %d tokens", maxLen, ex.Len())
		}
	}
}

// TestTokenizeSpanCoverage recomputes every turn's token span independently
// and checks the mask is exact: IGNORE everywhere outside assistant spans,
// untouched ids inside them, with no off-by-one leak at either edge.
func TestTokenizeSpanCoverage(t *testing.T) {
	t.Parallel()

	conv := multiTurn()
	r := byteRenderer()
	ex, err := Tokenize(conv, r, MaskOptions{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	renderLen := func(k int, gen bool) int {
		ids, err := r.Render(conv[:k], gen)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		return len(ids)
	}

	// Learnable regions: each assistant turn's span, from after the
	// generation prompt to the end of its own markup, plus the trailing
	// generation prompt of the full render.
	learnable := make([]bool, ex.Len())
	for idx, turn := range conv {
		if !turn.IsAssistant() {
			continue
		}
		for i := renderLen(idx, true); i < renderLen(idx+1, false); i++ {
			learnable[i] = true
		}
	}
	for i := renderLen(len(conv), false); i < ex.Len(); i++ {
		learnable[i] = true
	}

	for i := range learnable {
		if learnable[i] && ex.Labels[i] != ex.InputIDs[i] {
			t.Fatalf("labels[%d] = %d, want input id %d", i, ex.Labels[i], ex.InputIDs[i])
		}
		if !learnable[i] && ex.Labels[i] != Ignore {
			t.Fatalf("labels[%d] = %d, want IGNORE", i, ex.Labels[i])
		}
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	t.Parallel()

	a, err := Tokenize(multiTurn(), byteRenderer(), MaskOptions{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	b, err := Tokenize(multiTurn(), byteRenderer(), MaskOptions{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("tokenizing the same conversation twice differs")
	}
}

func TestTokenizeTruncationLaw(t *testing.T) {
	t.Parallel()

	full, err := Tokenize(multiTurn(), byteRenderer(), MaskOptions{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	for n := 1; n <= full.Len(); n++ {
		got, err := Tokenize(multiTurn(), byteRenderer(), MaskOptions{MaxLength: n})
		if err != nil {
			t.Fatalf("tokenize max_length=%d: %v", n, err)
		}
		want := Truncate(full, n)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("max_length=%d: truncated tokenization differs from tokenized truncation", n)
		}
	}
}

func TestTokenizeTrailingUserTurnFullyMasked(t *testing.T) {
	t.Parallel()

	conv := chat.Conversation{
		{Role: chat.RoleUser, Content: "2+2?"},
		{Role: chat.RoleAssistant, Content: "4"},
		{Role: chat.RoleUser, Content: "thanks"},
	}
	r := byteRenderer()
	ex, err := Tokenize(conv, r, MaskOptions{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	start, _ := r.Render(conv[:2], false)
	end, _ := r.Render(conv[:3], false)
	for i := len(start); i < len(end); i++ {
		if ex.Labels[i] != Ignore {
			t.Fatalf("labels[%d] = %d, want IGNORE in the trailing user turn", i, ex.Labels[i])
		}
	}
}

// brokenRenderer renders prefixes that are not prefixes of the full
// sequence.
type brokenRenderer struct{}

func (brokenRenderer) Render(turns []chat.Turn, addGenerationPrompt bool) ([]int, error) {
	ids := make([]int, 4*len(turns)+1)
	for i := range ids {
		ids[i] = len(turns)*1000 + i
	}
	return ids, nil
}

func (brokenRenderer) PadID() int { return 0 }

func TestTokenizeRejectsInconsistentRenderer(t *testing.T) {
	t.Parallel()

	conv := chat.Conversation{
		{Role: chat.RoleUser, Content: "a"},
		{Role: chat.RoleAssistant, Content: "b"},
		{Role: chat.RoleUser, Content: "c"},
	}
	if _, err := Tokenize(conv, brokenRenderer{}, MaskOptions{}); err == nil {
		t.Fatal("expected prefix-consistency error")
	}
}

func TestTokenizeEmptyConversation(t *testing.T) {
	t.Parallel()

	if _, err := Tokenize(nil, byteRenderer(), MaskOptions{}); err == nil {
		t.Fatal("expected error for empty conversation")
	}
}
