package nn

import (
	"fmt"
	"math"
)

// AdamW implements Adam with decoupled weight decay.
type AdamW struct {
	LR          float32
	Beta1       float32
	Beta2       float32
	Eps         float32
	WeightDecay float32

	step int
	m    map[string][]float32
	v    map[string][]float32
}

// NewAdamW creates an AdamW optimizer with the usual defaults for the
// moment coefficients.
func NewAdamW(lr, weightDecay float32) *AdamW {
	return &AdamW{
		LR:          lr,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: weightDecay,
		m:           make(map[string][]float32),
		v:           make(map[string][]float32),
	}
}

func (o *AdamW) Step(params []*Parameter) {
	o.step++
	bc1 := 1 - float32(math.Pow(float64(o.Beta1), float64(o.step)))
	bc2 := 1 - float32(math.Pow(float64(o.Beta2), float64(o.step)))
	for _, p := range params {
		m, ok := o.m[p.Name]
		if !ok {
			m = make([]float32, len(p.Data))
			o.m[p.Name] = m
		}
		v, ok := o.v[p.Name]
		if !ok {
			v = make([]float32, len(p.Data))
			o.v[p.Name] = v
		}
		for i, g := range p.Grad {
			m[i] = o.Beta1*m[i] + (1-o.Beta1)*g
			v[i] = o.Beta2*v[i] + (1-o.Beta2)*g*g
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			p.Data[i] -= o.LR * (mHat/(float32(math.Sqrt(float64(vHat)))+o.Eps) + o.WeightDecay*p.Data[i])
		}
	}
}

func (o *AdamW) State() OptimizerState {
	st := OptimizerState{Type: "adamw", Step: o.step, Buffers: make(map[string][]float32)}
	for name, buf := range o.m {
		st.Buffers[bufferKey("m", name)] = append([]float32(nil), buf...)
	}
	for name, buf := range o.v {
		st.Buffers[bufferKey("v", name)] = append([]float32(nil), buf...)
	}
	return st
}

func (o *AdamW) LoadState(state OptimizerState) error {
	if state.Type != "" && state.Type != "adamw" {
		return fmt.Errorf("optimizer state: type %q, want adamw", state.Type)
	}
	o.step = state.Step
	o.m = make(map[string][]float32)
	o.v = make(map[string][]float32)
	for key, src := range state.Buffers {
		buf := append([]float32(nil), src...)
		switch {
		case len(key) > 2 && key[:2] == "m/":
			o.m[key[2:]] = buf
		case len(key) > 2 && key[:2] == "v/":
			o.v[key[2:]] = buf
		default:
			return fmt.Errorf("optimizer state: unexpected buffer %q", key)
		}
	}
	return nil
}
