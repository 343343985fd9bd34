package chat

import "strings"

// ChatML template markup.
const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"

	// GenerationPrompt is the markup signalling "the assistant speaks next".
	// It is template boilerplate, not assistant-authored content, and is
	// masked out of the training labels along with the rest of the
	// non-assistant markup.
	GenerationPrompt = imStart + RoleAssistant + "\n"
)

// RenderOptions controls ChatML rendering.
type RenderOptions struct {
	// AddGenerationPrompt appends an open assistant header after the last
	// turn.
	AddGenerationPrompt bool
}

// RenderChatML serializes turns using the ChatML template:
//
//	<|im_start|>role\ncontent<|im_end|>\n
//
// per turn, optionally followed by an open assistant header. The output is
// prefix-consistent: rendering turns[:k] always yields a string prefix of
// rendering turns[:k+1], which the label-masking tokenizer relies on.
func RenderChatML(turns []Turn, opts RenderOptions) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(imStart)
		b.WriteString(t.Role)
		b.WriteString("\n")
		b.WriteString(t.Content)
		b.WriteString(imEnd)
		b.WriteString("\n")
	}
	if opts.AddGenerationPrompt {
		b.WriteString(GenerationPrompt)
	}
	return b.String()
}
