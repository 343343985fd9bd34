package train

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"kiln/internal/nn"
	"kiln/internal/storage"
)

// Snapshot is the durable recovery point: model and optimizer state as of
// the same completed epoch boundary. There is exactly one snapshot per
// run and every write replaces it wholesale; partial-epoch snapshots are
// never produced.
type Snapshot struct {
	ModelState     map[string][]float32 `json:"model_state"`
	OptimizerState nn.OptimizerState    `json:"optimizer_state"`
	FinishedEpoch  int                  `json:"finished_epoch"`
}

// SaveSnapshot serializes and writes the snapshot. Only the coordinator
// calls this; concurrent writers to the same path would corrupt the
// recovery point.
func SaveSnapshot(ctx context.Context, store storage.Store, path string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("train: encode snapshot: %w", err)
	}
	if err := store.Write(ctx, path, data); err != nil {
		return fmt.Errorf("train: write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads and decodes the snapshot at path. A missing snapshot
// surfaces as the store's not-exist error so callers can distinguish the
// expected fresh-start case from a corrupt artifact, which is fatal.
func LoadSnapshot(ctx context.Context, store storage.Store, path string) (Snapshot, error) {
	data, err := store.Read(ctx, path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("train: decode snapshot %s: %w", path, err)
	}
	return snap, nil
}
