package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// CharLM is a deliberately small next-token model: an embedding table
// followed by a linear projection back to the vocabulary. It exists to
// exercise the training harness end to end, not to be a good language
// model; anything satisfying Model can replace it.
type CharLM struct {
	vocab  int
	hidden int

	emb *Parameter // [vocab x hidden]
	out *Parameter // [hidden x vocab]

	// caches from the last Forward, consumed by Backward
	steps []charStep
	count int
}

type charStep struct {
	x, y  int
	probs []float32
}

// skipTarget mirrors the data pipeline's ignore sentinel without importing
// it; any negative target id is skipped.
func skipTarget(y int) bool { return y < 0 }

// NewCharLM builds a model with weights drawn from a seeded normal
// distribution, so replicas constructed with the same seed start identical
// across workers.
func NewCharLM(vocab, hidden int, seed int64) *CharLM {
	m := &CharLM{
		vocab:  vocab,
		hidden: hidden,
		emb:    NewParameter("emb", vocab, hidden),
		out:    NewParameter("out", hidden, vocab),
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range m.emb.Data {
		m.emb.Data[i] = float32(rng.NormFloat64()) * 0.02
	}
	for i := range m.out.Data {
		m.out.Data[i] = float32(rng.NormFloat64()) * 0.02
	}
	return m
}

// Forward computes mean cross-entropy over all positions with a real
// target. A batch with no real targets yields zero loss and a no-op
// backward pass.
func (m *CharLM) Forward(inputs, targets [][]int) (float32, error) {
	if len(inputs) != len(targets) {
		return 0, fmt.Errorf("charlm: %d input rows vs %d target rows", len(inputs), len(targets))
	}
	m.steps = m.steps[:0]
	m.count = 0

	var total float64
	for b := range inputs {
		if len(inputs[b]) != len(targets[b]) {
			return 0, fmt.Errorf("charlm: row %d: %d inputs vs %d targets", b, len(inputs[b]), len(targets[b]))
		}
		for t := range inputs[b] {
			x, y := inputs[b][t], targets[b][t]
			if skipTarget(y) {
				continue
			}
			if x < 0 || x >= m.vocab || y >= m.vocab {
				return 0, fmt.Errorf("charlm: token id out of range at row %d pos %d", b, t)
			}
			probs := m.softmaxLogits(x)
			total += -math.Log(math.Max(float64(probs[y]), 1e-12))
			m.steps = append(m.steps, charStep{x: x, y: y, probs: probs})
			m.count++
		}
	}
	if m.count == 0 {
		return 0, nil
	}
	return float32(total / float64(m.count)), nil
}

// Backward accumulates gradients of scale * the last Forward's loss.
func (m *CharLM) Backward(scale float32) error {
	if m.count == 0 {
		return nil
	}
	h := make([]float32, m.hidden)
	inv := scale / float32(m.count)
	for _, st := range m.steps {
		copy(h, m.emb.Data[st.x*m.hidden:(st.x+1)*m.hidden])
		for j := 0; j < m.vocab; j++ {
			d := st.probs[j]
			if j == st.y {
				d -= 1
			}
			d *= inv
			if d == 0 {
				continue
			}
			for i := 0; i < m.hidden; i++ {
				m.out.Grad[i*m.vocab+j] += h[i] * d
				m.emb.Grad[st.x*m.hidden+i] += m.out.Data[i*m.vocab+j] * d
			}
		}
	}
	return nil
}

func (m *CharLM) softmaxLogits(x int) []float32 {
	h := m.emb.Data[x*m.hidden : (x+1)*m.hidden]
	logits := make([]float64, m.vocab)
	maxLogit := math.Inf(-1)
	for j := 0; j < m.vocab; j++ {
		var s float64
		for i := 0; i < m.hidden; i++ {
			s += float64(h[i]) * float64(m.out.Data[i*m.vocab+j])
		}
		logits[j] = s
		if s > maxLogit {
			maxLogit = s
		}
	}
	var sum float64
	probs := make([]float32, m.vocab)
	for j, l := range logits {
		e := math.Exp(l - maxLogit)
		logits[j] = e
		sum += e
	}
	for j, e := range logits {
		probs[j] = float32(e / sum)
	}
	return probs
}

func (m *CharLM) Parameters() []*Parameter {
	return []*Parameter{m.emb, m.out}
}

func (m *CharLM) StateDict() map[string][]float32 {
	return map[string][]float32{
		"emb": append([]float32(nil), m.emb.Data...),
		"out": append([]float32(nil), m.out.Data...),
	}
}

func (m *CharLM) LoadStateDict(state map[string][]float32) error {
	for _, p := range m.Parameters() {
		src, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("charlm: state missing parameter %q", p.Name)
		}
		if len(src) != len(p.Data) {
			return fmt.Errorf("charlm: parameter %q has %d values, want %d", p.Name, len(src), len(p.Data))
		}
		copy(p.Data, src)
	}
	return nil
}
