// Package chat defines the conversation data model shared by the data
// preparation pipeline: ordered turns of role-tagged text plus the
// template rendering used to serialize them for a tokenizer.
package chat

// Turn roles. Anything outside this set is passed through verbatim by the
// renderer but is never treated as a learning target.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single role-tagged message. Turns are immutable once built.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered sequence of turns.
type Conversation []Turn

// IsAssistant reports whether the turn was authored by the assistant, i.e.
// whether its tokens are eligible to contribute to the training loss.
func (t Turn) IsAssistant() bool {
	return t.Role == RoleAssistant
}
