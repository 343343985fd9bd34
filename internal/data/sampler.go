package data

import "math/rand"

// Sampler assigns a disjoint slice of the dataset to each worker for one
// epoch. The permutation is keyed by the epoch number alone, so every
// worker computes the same permutation independently and the rank
// partitions never overlap, while the partitioning changes shape from epoch
// to epoch.
type Sampler struct {
	// Size is the total number of examples in the dataset.
	Size int
	// Rank and World identify this worker's partition.
	Rank  int
	World int
	// Shuffle permutes the epoch ordering; when false the order is the
	// dataset order.
	Shuffle bool
	// DropLast trims the tail so every rank gets an equal share. When
	// false the index list is padded by wrapping around, matching the
	// usual distributed-sampler behavior.
	DropLast bool
	// Seed offsets the epoch key so distinct runs can reshuffle
	// differently while staying consistent across ranks.
	Seed int64
}

// Indices returns this rank's example indices for the given epoch, in
// iteration order. All ranks receive the same number of indices.
func (s Sampler) Indices(epoch int) []int {
	world := s.World
	if world < 1 {
		world = 1
	}

	order := make([]int, s.Size)
	for i := range order {
		order[i] = i
	}
	if s.Shuffle {
		rng := rand.New(rand.NewSource(s.Seed + int64(epoch)))
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	if s.DropLast {
		order = order[:len(order)-len(order)%world]
	} else {
		// Pad to a multiple of world by wrapping to the front of the
		// ordering, so no rank starves.
		pad := (world - len(order)%world) % world
		for i := 0; i < pad; i++ {
			order = append(order, order[i])
		}
	}

	share := make([]int, 0, len(order)/world)
	for i := s.Rank; i < len(order); i += world {
		share = append(share, order[i])
	}
	return share
}
