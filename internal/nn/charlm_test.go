package nn

import (
	"math"
	"testing"
)

func TestCharLMSeedDeterminism(t *testing.T) {
	t.Parallel()

	a := NewCharLM(7, 4, 42)
	b := NewCharLM(7, 4, 42)
	for i, p := range a.Parameters() {
		q := b.Parameters()[i]
		for j := range p.Data {
			if p.Data[j] != q.Data[j] {
				t.Fatalf("parameter %q differs between same-seed models at %d", p.Name, j)
			}
		}
	}
}

func TestCharLMIgnoresNegativeTargets(t *testing.T) {
	t.Parallel()

	m := NewCharLM(5, 3, 1)
	inputs := [][]int{{0, 1, 2}}

	loss, err := m.Forward(inputs, [][]int{{-100, 3, -100}})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	only, err := m.Forward([][]int{{1}}, [][]int{{3}})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if math.Abs(float64(loss-only)) > 1e-6 {
		t.Fatalf("loss over masked batch = %v, want %v (the single real target)", loss, only)
	}
}

func TestCharLMAllTargetsMasked(t *testing.T) {
	t.Parallel()

	m := NewCharLM(5, 3, 1)
	loss, err := m.Forward([][]int{{0, 1}}, [][]int{{-100, -100}})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if loss != 0 {
		t.Fatalf("fully masked batch loss = %v, want 0", loss)
	}
	if err := m.Backward(1); err != nil {
		t.Fatalf("backward: %v", err)
	}
	for _, p := range m.Parameters() {
		for i, g := range p.Grad {
			if g != 0 {
				t.Fatalf("fully masked backward wrote gradient %v at %s[%d]", g, p.Name, i)
			}
		}
	}
}

// TestCharLMGradientCheck compares analytic gradients against central finite
// differences of the loss.
func TestCharLMGradientCheck(t *testing.T) {
	t.Parallel()

	m := NewCharLM(4, 3, 9)
	inputs := [][]int{{0, 1, 2}, {3, 0, 1}}
	targets := [][]int{{1, 2, -100}, {0, 3, 2}}

	lossAt := func() float32 {
		loss, err := m.Forward(inputs, targets)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		return loss
	}

	lossAt()
	ZeroGrad(m.Parameters())
	if err := m.Backward(1); err != nil {
		t.Fatalf("backward: %v", err)
	}

	const eps = 1e-3
	for _, p := range m.Parameters() {
		for i := range p.Data {
			orig := p.Data[i]
			p.Data[i] = orig + eps
			up := float64(lossAt())
			p.Data[i] = orig - eps
			down := float64(lossAt())
			p.Data[i] = orig

			numeric := (up - down) / (2 * eps)
			analytic := float64(p.Grad[i])
			if diff := math.Abs(numeric - analytic); diff > 1e-3+1e-2*math.Abs(numeric) {
				t.Fatalf("%s[%d]: analytic %v vs numeric %v", p.Name, i, analytic, numeric)
			}
		}
	}
}

func TestCharLMBackwardScale(t *testing.T) {
	t.Parallel()

	inputs := [][]int{{0, 1}}
	targets := [][]int{{1, 2}}

	a := NewCharLM(4, 3, 5)
	if _, err := a.Forward(inputs, targets); err != nil {
		t.Fatalf("forward: %v", err)
	}
	ZeroGrad(a.Parameters())
	_ = a.Backward(1)

	b := NewCharLM(4, 3, 5)
	if _, err := b.Forward(inputs, targets); err != nil {
		t.Fatalf("forward: %v", err)
	}
	ZeroGrad(b.Parameters())
	_ = b.Backward(64)

	for i, p := range a.Parameters() {
		q := b.Parameters()[i]
		for j := range p.Grad {
			if diff := math.Abs(float64(q.Grad[j] - 64*p.Grad[j])); diff > 1e-4 {
				t.Fatalf("%s[%d]: scaled gradient %v, want %v", p.Name, j, q.Grad[j], 64*p.Grad[j])
			}
		}
	}
}

func TestCharLMLearns(t *testing.T) {
	t.Parallel()

	m := NewCharLM(4, 8, 7)
	opt := NewSGD(0.5, 0)
	inputs := [][]int{{0, 1, 2, 3}}
	targets := [][]int{{1, 2, 3, 0}}

	first, err := m.Forward(inputs, targets)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	var last float32
	for step := 0; step < 50; step++ {
		loss, err := m.Forward(inputs, targets)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		ZeroGrad(m.Parameters())
		if err := m.Backward(1); err != nil {
			t.Fatalf("backward: %v", err)
		}
		opt.Step(m.Parameters())
		last = loss
	}
	if last >= first {
		t.Fatalf("loss did not decrease: first %v, last %v", first, last)
	}
}

func TestCharLMStateDictRoundTrip(t *testing.T) {
	t.Parallel()

	src := NewCharLM(6, 4, 11)
	dst := NewCharLM(6, 4, 99)
	if err := dst.LoadStateDict(src.StateDict()); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i, p := range src.Parameters() {
		q := dst.Parameters()[i]
		for j := range p.Data {
			if p.Data[j] != q.Data[j] {
				t.Fatalf("%s[%d] not restored", p.Name, j)
			}
		}
	}
}

func TestCharLMLoadStateDictValidates(t *testing.T) {
	t.Parallel()

	m := NewCharLM(4, 3, 1)
	if err := m.LoadStateDict(map[string][]float32{"emb": make([]float32, 12)}); err == nil {
		t.Fatal("expected error for missing parameter")
	}
	if err := m.LoadStateDict(map[string][]float32{
		"emb": make([]float32, 5),
		"out": make([]float32, 12),
	}); err == nil {
		t.Fatal("expected error for wrong parameter size")
	}
}

func TestCharLMRejectsRaggedBatch(t *testing.T) {
	t.Parallel()

	m := NewCharLM(4, 3, 1)
	if _, err := m.Forward([][]int{{0, 1}}, [][]int{{1}}); err == nil {
		t.Fatal("expected error for mismatched row lengths")
	}
	if _, err := m.Forward([][]int{{0}, {1}}, [][]int{{1}}); err == nil {
		t.Fatal("expected error for mismatched row counts")
	}
}
