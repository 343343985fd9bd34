package nn

import (
	"fmt"
	"strings"
)

// SGD implements stochastic gradient descent with optional momentum.
type SGD struct {
	LR       float32
	Momentum float32

	step     int
	velocity map[string][]float32
}

// NewSGD creates an SGD optimizer. Momentum 0 disables the velocity term.
func NewSGD(lr, momentum float32) *SGD {
	return &SGD{LR: lr, Momentum: momentum, velocity: make(map[string][]float32)}
}

func (o *SGD) Step(params []*Parameter) {
	o.step++
	for _, p := range params {
		if o.Momentum == 0 {
			for i, g := range p.Grad {
				p.Data[i] -= o.LR * g
			}
			continue
		}
		v, ok := o.velocity[p.Name]
		if !ok {
			v = make([]float32, len(p.Data))
			o.velocity[p.Name] = v
		}
		for i, g := range p.Grad {
			v[i] = o.Momentum*v[i] + g
			p.Data[i] -= o.LR * v[i]
		}
	}
}

func (o *SGD) State() OptimizerState {
	st := OptimizerState{Type: "sgd", Step: o.step, Buffers: make(map[string][]float32)}
	for name, v := range o.velocity {
		st.Buffers[bufferKey("velocity", name)] = append([]float32(nil), v...)
	}
	return st
}

func (o *SGD) LoadState(state OptimizerState) error {
	if state.Type != "" && state.Type != "sgd" {
		return fmt.Errorf("optimizer state: type %q, want sgd", state.Type)
	}
	o.step = state.Step
	o.velocity = make(map[string][]float32)
	for key, src := range state.Buffers {
		name, ok := strings.CutPrefix(key, "velocity/")
		if !ok {
			return fmt.Errorf("optimizer state: unexpected buffer %q", key)
		}
		o.velocity[name] = append([]float32(nil), src...)
	}
	return nil
}
