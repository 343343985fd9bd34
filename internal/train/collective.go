package train

import (
	"fmt"
	"sync"

	"kiln/internal/nn"
)

// Collective is the synchronization capability injected into the trainer.
// Both operations are blocking barriers: every worker in the group must
// make the same call in the same order, and a straggler holds everyone
// else. Failures are fatal to the run; retrying a collective with partial
// participation would desynchronize replica state.
type Collective interface {
	// AverageGradients replaces every parameter gradient with the mean of
	// that gradient across all workers.
	AverageGradients(params []*nn.Parameter) error
	// GatherLoss collects one scalar from every worker. The slice, indexed
	// by rank, is only returned at the coordinator; other workers get
	// ok=false.
	GatherLoss(loss float32) (losses []float32, ok bool, err error)
}

// Solo is the world-size-1 collective: averaging over one worker is the
// identity and the gather trivially returns the local value.
type Solo struct{}

func (Solo) AverageGradients([]*nn.Parameter) error { return nil }

func (Solo) GatherLoss(loss float32) ([]float32, bool, error) {
	return []float32{loss}, true, nil
}

// LocalGroup is an in-process collective for workers running as goroutines
// inside one process, one model replica each. It exists for the
// character-level harness and for tests; a multi-host deployment would
// inject a Collective backed by a real communication library instead.
//
// Each operation is a two-phase barrier: workers accumulate into a shared
// buffer, the last arrival finalizes it, and the round only resets after
// every worker has copied the result out. A worker that loops around to the
// next collective call blocks at the entry gate until the previous round
// has fully drained.
type LocalGroup struct {
	world int

	mu       sync.Mutex
	cond     *sync.Cond
	count    int
	draining bool
	sums     [][]float32
	slots    []float32
}

// NewLocalGroup creates a group expecting world workers.
func NewLocalGroup(world int) *LocalGroup {
	g := &LocalGroup{world: world}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Worker returns the collective handle for one rank.
func (g *LocalGroup) Worker(rank int) Collective {
	return &localWorker{group: g, rank: rank}
}

type localWorker struct {
	group *LocalGroup
	rank  int
}

func (w *localWorker) AverageGradients(params []*nn.Parameter) error {
	g := w.group
	g.mu.Lock()
	defer g.mu.Unlock()

	g.enter()

	if g.sums == nil {
		g.sums = make([][]float32, len(params))
		for i, p := range params {
			g.sums[i] = make([]float32, len(p.Grad))
		}
	}
	if len(g.sums) != len(params) {
		return fmt.Errorf("collective: rank %d brought %d parameters, group has %d", w.rank, len(params), len(g.sums))
	}
	for i, p := range params {
		if len(g.sums[i]) != len(p.Grad) {
			return fmt.Errorf("collective: rank %d: parameter %d gradient size mismatch", w.rank, i)
		}
		for j, v := range p.Grad {
			g.sums[i][j] += v
		}
	}

	if g.arrive() {
		inv := 1 / float32(g.world)
		for i := range g.sums {
			for j := range g.sums[i] {
				g.sums[i][j] *= inv
			}
		}
		g.release()
	}

	for i, p := range params {
		copy(p.Grad, g.sums[i])
	}

	if g.depart() {
		g.sums = nil
	}
	return nil
}

func (w *localWorker) GatherLoss(loss float32) ([]float32, bool, error) {
	g := w.group
	if w.rank < 0 || w.rank >= g.world {
		return nil, false, fmt.Errorf("collective: rank %d outside world size %d", w.rank, g.world)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.enter()

	if g.slots == nil {
		g.slots = make([]float32, g.world)
	}
	g.slots[w.rank] = loss

	if g.arrive() {
		g.release()
	}

	var out []float32
	if w.rank == 0 {
		out = append([]float32(nil), g.slots...)
	}
	if g.depart() {
		g.slots = nil
	}
	return out, w.rank == 0, nil
}

// enter gates a worker into the current round, waiting out a previous round
// that is still draining. Callers hold g.mu.
func (g *LocalGroup) enter() {
	for g.draining {
		g.cond.Wait()
	}
}

// arrive marks the worker as having contributed and blocks until the round
// is complete. Returns true for the last arrival, which must finalize the
// shared buffer and then call release.
func (g *LocalGroup) arrive() bool {
	g.count++
	if g.count == g.world {
		return true
	}
	for !g.draining {
		g.cond.Wait()
	}
	return false
}

// release opens the drain phase, waking workers blocked in arrive.
func (g *LocalGroup) release() {
	g.draining = true
	g.cond.Broadcast()
}

// depart removes the worker from the round. The last worker out resets the
// barrier for the next round and reports true so the caller can clear the
// shared buffers.
func (g *LocalGroup) depart() bool {
	g.count--
	if g.count == 0 {
		g.draining = false
		g.cond.Broadcast()
		return true
	}
	return false
}
