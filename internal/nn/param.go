// Package nn defines the model and optimizer contracts consumed by the
// trainer, plus a small character-level model used by the training harness.
package nn

import "math"

// Parameter is a named tensor with its gradient accumulator. Data and Grad
// are row-major flat buffers of identical length.
type Parameter struct {
	Name  string
	Shape []int
	Data  []float32
	Grad  []float32
}

// NewParameter allocates a zeroed parameter of the given shape.
func NewParameter(name string, shape ...int) *Parameter {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Parameter{
		Name:  name,
		Shape: shape,
		Data:  make([]float32, n),
		Grad:  make([]float32, n),
	}
}

// ZeroGrad clears every gradient buffer.
func ZeroGrad(params []*Parameter) {
	for _, p := range params {
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}

// GradNorm returns the global L2 norm over all gradients.
func GradNorm(params []*Parameter) float32 {
	var sum float64
	for _, p := range params {
		for _, g := range p.Grad {
			sum += float64(g) * float64(g)
		}
	}
	return float32(math.Sqrt(sum))
}

// ClipGradNorm rescales gradients in place so their global L2 norm does not
// exceed maxNorm, and returns the norm before clipping. maxNorm <= 0
// disables clipping.
func ClipGradNorm(params []*Parameter, maxNorm float32) float32 {
	total := GradNorm(params)
	if maxNorm <= 0 || total <= maxNorm {
		return total
	}
	scale := maxNorm / total
	for _, p := range params {
		for i := range p.Grad {
			p.Grad[i] *= scale
		}
	}
	return total
}

// GradsFinite reports whether every gradient is a finite number. Used by
// the loss scaler to decide whether a step must be skipped.
func GradsFinite(params []*Parameter) bool {
	for _, p := range params {
		for _, g := range p.Grad {
			f := float64(g)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// ScaleGrads multiplies every gradient by factor. The trainer uses it to
// unscale after a loss-scaled backward pass.
func ScaleGrads(params []*Parameter, factor float32) {
	for _, p := range params {
		for i := range p.Grad {
			p.Grad[i] *= factor
		}
	}
}
