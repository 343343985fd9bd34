package tokenizer

import "fmt"

// ByteTokenizer maps each byte of the input to its own token id, with one
// extra id reserved for padding. It is trivially prefix-consistent, which
// makes it the reference tokenizer for the masking pipeline and its tests.
type ByteTokenizer struct{}

// bytePadID sits just past the byte range.
const bytePadID = 256

// ByteVocabSize is the vocabulary size of ByteTokenizer (256 bytes + pad).
const ByteVocabSize = 257

func (ByteTokenizer) Encode(text string) ([]int, error) {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids, nil
}

func (ByteTokenizer) Decode(ids []int) (string, error) {
	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id == bytePadID {
			continue
		}
		if id < 0 || id > 255 {
			return "", fmt.Errorf("byte tokenizer: id %d out of range", id)
		}
		out = append(out, byte(id))
	}
	return string(out), nil
}

func (ByteTokenizer) PadID() int {
	return bytePadID
}
