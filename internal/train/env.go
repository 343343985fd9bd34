// Package train implements the distributed training loop: per-step
// forward/backward with gradient averaging, epoch-cadence checkpointing by
// the coordinator, and automatic resume from the last snapshot.
package train

import (
	"fmt"
	"os"
	"strconv"
)

// Env identifies a worker inside the process group. The launcher assigns
// these; they are never computed here.
type Env struct {
	LocalRank  int
	GlobalRank int
	WorldSize  int
}

// IsCoordinator reports whether this worker is the designated rank 0,
// responsible for snapshot writes and aggregated logging.
func (e Env) IsCoordinator() bool { return e.GlobalRank == 0 }

// EnvFromOS reads LOCAL_RANK, RANK and WORLD_SIZE. When none are set the
// run is a single local worker; when only some are set the launch is
// malformed and rejected.
func EnvFromOS() (Env, error) {
	local, okLocal := os.LookupEnv("LOCAL_RANK")
	global, okGlobal := os.LookupEnv("RANK")
	world, okWorld := os.LookupEnv("WORLD_SIZE")

	if !okLocal && !okGlobal && !okWorld {
		return Env{LocalRank: 0, GlobalRank: 0, WorldSize: 1}, nil
	}
	if !okLocal || !okGlobal || !okWorld {
		return Env{}, fmt.Errorf("train: LOCAL_RANK, RANK and WORLD_SIZE must be set together")
	}

	env := Env{}
	var err error
	if env.LocalRank, err = strconv.Atoi(local); err != nil {
		return Env{}, fmt.Errorf("train: LOCAL_RANK: %w", err)
	}
	if env.GlobalRank, err = strconv.Atoi(global); err != nil {
		return Env{}, fmt.Errorf("train: RANK: %w", err)
	}
	if env.WorldSize, err = strconv.Atoi(world); err != nil {
		return Env{}, fmt.Errorf("train: WORLD_SIZE: %w", err)
	}
	if env.WorldSize < 1 || env.GlobalRank < 0 || env.GlobalRank >= env.WorldSize {
		return Env{}, fmt.Errorf("train: invalid rank %d for world size %d", env.GlobalRank, env.WorldSize)
	}
	return env, nil
}
