// Package tokenizer provides the token-id boundary of the pipeline: plain
// text tokenizers plus the conversation render contract consumed by the
// label-masking code.
package tokenizer

import "kiln/internal/chat"

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// PadID is the designated padding token id used by the batch collator.
	PadID() int
}

// Renderer maps a prefix of conversation turns to a token-id sequence.
// Implementations must be deterministic and prefix-consistent: the ids for
// turns[:k] are a true prefix of the ids for turns[:k+1]. The masking code
// computes span boundaries by re-rendering prefixes, so a renderer that
// violates this produces silently wrong labels.
type Renderer interface {
	Render(turns []chat.Turn, addGenerationPrompt bool) ([]int, error)
	PadID() int
}

// ChatML renders conversations with the ChatML template and feeds the
// result through a text tokenizer. Prefix consistency holds as long as the
// tokenizer encodes string prefixes to token prefixes; the byte tokenizer
// does, BPE-style tokenizers in general do not and need their own Renderer.
type ChatML struct {
	Tok Tokenizer
}

func (c ChatML) Render(turns []chat.Turn, addGenerationPrompt bool) ([]int, error) {
	text := chat.RenderChatML(turns, chat.RenderOptions{AddGenerationPrompt: addGenerationPrompt})
	return c.Tok.Encode(text)
}

func (c ChatML) PadID() int {
	return c.Tok.PadID()
}
