package train

// GradScaler implements dynamic loss scaling for mixed-precision training.
// The loss is multiplied by the current scale before the backward pass;
// after unscaling, a step whose gradients came out non-finite is skipped
// and the scale backs off. After GrowthInterval consecutive good steps the
// scale grows again.
type GradScaler struct {
	scale          float32
	growthFactor   float32
	backoffFactor  float32
	growthInterval int
	goodSteps      int
}

// NewGradScaler returns a scaler with the conventional defaults.
func NewGradScaler() *GradScaler {
	return &GradScaler{
		scale:          65536,
		growthFactor:   2,
		backoffFactor:  0.5,
		growthInterval: 2000,
	}
}

// Scale is the factor to apply to the loss before backward.
func (s *GradScaler) Scale() float32 { return s.scale }

// Update adjusts the scale after a step. foundInf reports whether the
// unscaled gradients contained non-finite values (in which case the caller
// skipped the optimizer step).
func (s *GradScaler) Update(foundInf bool) {
	if foundInf {
		s.scale *= s.backoffFactor
		if s.scale < 1 {
			s.scale = 1
		}
		s.goodSteps = 0
		return
	}
	s.goodSteps++
	if s.goodSteps >= s.growthInterval {
		s.scale *= s.growthFactor
		s.goodSteps = 0
	}
}
