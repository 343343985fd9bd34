package tokenizer

import (
	"fmt"
	"sort"
)

// CharVocab is a character-level tokenizer whose vocabulary is built from a
// training corpus: every distinct rune gets an id, assigned in sorted rune
// order so the mapping is independent of corpus order. Used by the
// character-level training harness.
type CharVocab struct {
	runeToID map[rune]int
	idToRune []rune
}

// NewCharVocab builds a vocabulary from the corpus. The pad id is appended
// after the last rune id.
func NewCharVocab(corpus string) *CharVocab {
	seen := make(map[rune]bool)
	for _, r := range corpus {
		seen[r] = true
	}
	runes := make([]rune, 0, len(seen))
	for r := range seen {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	v := &CharVocab{
		runeToID: make(map[rune]int, len(runes)),
		idToRune: runes,
	}
	for i, r := range runes {
		v.runeToID[r] = i
	}
	return v
}

// VocabSize includes the pad id.
func (v *CharVocab) VocabSize() int {
	return len(v.idToRune) + 1
}

func (v *CharVocab) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		id, ok := v.runeToID[r]
		if !ok {
			return nil, fmt.Errorf("char vocab: rune %q not in vocabulary", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (v *CharVocab) Decode(ids []int) (string, error) {
	out := make([]rune, 0, len(ids))
	for _, id := range ids {
		if id == v.PadID() {
			continue
		}
		if id < 0 || id >= len(v.idToRune) {
			return "", fmt.Errorf("char vocab: id %d out of range", id)
		}
		out = append(out, v.idToRune[id])
	}
	return string(out), nil
}

func (v *CharVocab) PadID() int {
	return len(v.idToRune)
}
