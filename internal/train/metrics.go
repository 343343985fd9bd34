package train

import "time"

// Metrics is a point-in-time view of training progress, published after
// every logged step. Best-effort observability only; nothing in the run
// depends on it.
type Metrics struct {
	Epoch     int       `json:"epoch"`
	Step      int       `json:"step"`
	Loss      float32   `json:"loss"`
	EvalLoss  float32   `json:"eval_loss,omitempty"`
	Resumed   bool      `json:"resumed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reporter receives metrics updates. Implementations must not block; the
// trainer calls Observe from the hot loop.
type Reporter interface {
	Observe(m Metrics)
}

type nopReporter struct{}

func (nopReporter) Observe(Metrics) {}
