package chat

import (
	"fmt"
	"strings"
)

// ReasoningRecord is a raw dataset row carrying a question, the
// chain-of-thought rationale behind the answer, and the final answer.
type ReasoningRecord struct {
	Question  string `json:"Question"`
	Rationale string `json:"Complex_CoT"`
	Response  string `json:"Response"`
}

// FormatReasoning converts a reasoning record into a two-turn conversation:
// the question as a user turn and, as the assistant turn, the rationale under
// a "# Thinking" heading followed by the answer under "## Final Response".
// Pure function: no side effects, same record always yields the same
// conversation.
func FormatReasoning(rec ReasoningRecord) Conversation {
	var b strings.Builder
	b.WriteString("# Thinking\n\n")
	b.WriteString(strings.TrimSpace(rec.Rationale))
	b.WriteString("\n\n## Final Response\n\n")
	b.WriteString(strings.TrimSpace(rec.Response))

	return Conversation{
		{Role: RoleUser, Content: rec.Question},
		{Role: RoleAssistant, Content: b.String()},
	}
}

// Validate reports the first missing field of a record. Records with a blank
// question or response cannot be masked reliably, so they are rejected
// outright rather than skipped.
func (r ReasoningRecord) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("reasoning record: empty Question field")
	}
	if strings.TrimSpace(r.Response) == "" {
		return fmt.Errorf("reasoning record: empty Response field")
	}
	return nil
}
