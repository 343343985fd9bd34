package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kiln/internal/train"
)

// runWorkers executes fn once per worker. With workers <= 1 the single
// worker takes its identity from the launch environment; with more, a local
// in-process group is spun up, one goroutine and one model replica per
// rank, sharing an in-memory collective.
func runWorkers(ctx context.Context, workers int, fn func(env train.Env, col train.Collective) error) error {
	if workers <= 1 {
		env, err := train.EnvFromOS()
		if err != nil {
			return err
		}
		if env.WorldSize > 1 {
			return fmt.Errorf("kiln: WORLD_SIZE=%d but no inter-process collective is wired; use --workers for an in-process group", env.WorldSize)
		}
		return fn(env, train.Solo{})
	}

	group := train.NewLocalGroup(workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for rank := 0; rank < workers; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = fn(train.Env{LocalRank: rank, GlobalRank: rank, WorldSize: workers}, group.Worker(rank))
		}(rank)
	}
	wg.Wait()
	return errors.Join(errs...)
}
