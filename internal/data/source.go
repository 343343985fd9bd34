package data

import (
	"bufio"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"kiln/internal/chat"
)

// RecordSource exposes a raw dataset as indexed conversations. The two
// concrete sources cover the two record shapes in use: records that already
// are multi-turn conversations, and reasoning records that go through the
// question/rationale/answer template first. The source kind is picked once
// at startup from configuration.
type RecordSource interface {
	Len() int
	Get(i int) (chat.Conversation, error)
}

// Source kinds accepted by OpenSource.
const (
	SourceChat      = "chat"
	SourceReasoning = "reasoning"
)

// OpenSource loads a JSONL dataset of the given kind from path.
func OpenSource(kind, path string) (RecordSource, error) {
	switch kind {
	case SourceChat:
		return openChatSource(path)
	case SourceReasoning:
		return openReasoningSource(path)
	default:
		return nil, fmt.Errorf("unknown dataset kind %q (want %q or %q)", kind, SourceChat, SourceReasoning)
	}
}

// chatSource holds records that are already conversations:
// {"conversation": [{"role": ..., "content": ...}, ...]} per line.
type chatSource struct {
	convs []chat.Conversation
}

func openChatSource(path string) (*chatSource, error) {
	src := &chatSource{}
	err := readJSONL(path, func(line []byte, n int) error {
		var rec struct {
			Conversation chat.Conversation `json:"conversation"`
		}
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if len(rec.Conversation) == 0 {
			return fmt.Errorf("record %d: missing conversation field", n)
		}
		src.convs = append(src.convs, rec.Conversation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (s *chatSource) Len() int { return len(s.convs) }

func (s *chatSource) Get(i int) (chat.Conversation, error) {
	return s.convs[i], nil
}

// reasoningSource holds question/rationale/answer records and renders them
// through the reasoning template on access.
type reasoningSource struct {
	recs []chat.ReasoningRecord
}

func openReasoningSource(path string) (*reasoningSource, error) {
	src := &reasoningSource{}
	err := readJSONL(path, func(line []byte, n int) error {
		var rec chat.ReasoningRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		src.recs = append(src.recs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (s *reasoningSource) Len() int { return len(s.recs) }

func (s *reasoningSource) Get(i int) (chat.Conversation, error) {
	return chat.FormatReasoning(s.recs[i]), nil
}

func readJSONL(path string, fn func(line []byte, n int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
	n := 0
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line, n); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
