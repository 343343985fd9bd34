package nn

// Model is the contract between the trainer and whatever network it trains.
// A model owns its parameters and the activation caches needed to run a
// backward pass after a forward pass.
//
// Forward consumes a rectangular batch of input ids and target ids (same
// shape) and returns the mean loss over positions whose target is not the
// ignore sentinel. Backward accumulates the gradients of scale*loss into
// the parameters; the trainer is responsible for zeroing gradients between
// steps. StateDict and LoadStateDict exist for snapshotting.
type Model interface {
	Forward(inputs, targets [][]int) (float32, error)
	Backward(scale float32) error
	Parameters() []*Parameter
	StateDict() map[string][]float32
	LoadStateDict(state map[string][]float32) error
}
