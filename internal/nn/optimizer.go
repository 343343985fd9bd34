package nn

// OptimizerState is the serializable snapshot of an optimizer: its step
// counter and per-parameter buffers (momentum, first/second moments, ...)
// keyed by buffer kind and parameter name.
type OptimizerState struct {
	Type    string               `json:"type"`
	Step    int                  `json:"step"`
	Buffers map[string][]float32 `json:"buffers"`
}

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	Step(params []*Parameter)
	State() OptimizerState
	LoadState(state OptimizerState) error
}

func bufferKey(kind, name string) string {
	return kind + "/" + name
}
