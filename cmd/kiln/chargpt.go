package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"kiln/internal/data"
	"kiln/internal/logger"
	"kiln/internal/nn"
	"kiln/internal/tokenizer"
	"kiln/internal/train"
)

// chargptCmd is the distributed-harness demo: a character-level model
// trained on a raw text corpus, with an in-process worker group standing in
// for a multi-device launch.
func chargptCmd() *cli.Command {
	var (
		dataPath  string
		blockSize int64
		workers   int64
		maxEpochs int64
		batchSize int64
		hidden    int64
		lr        float64
		clip      float64
		snapshot  string
		saveEvery int64
		logEvery  int64
		evalSplit float64
		useAMP    bool
		seed      int64
	)

	return &cli.Command{
		Name:  "chargpt",
		Usage: "Train a character-level model on a text corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "data",
				Usage:       "path to the text corpus",
				Destination: &dataPath,
			},
			&cli.Int64Flag{
				Name:        "block-size",
				Usage:       "context window in characters",
				Value:       64,
				Destination: &blockSize,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Usage:       "size of the in-process worker group",
				Value:       1,
				Destination: &workers,
			},
			&cli.Int64Flag{
				Name:        "max-epochs",
				Usage:       "total number of epochs to train",
				Value:       3,
				Destination: &maxEpochs,
			},
			&cli.Int64Flag{
				Name:        "batch-size",
				Usage:       "examples per batch per worker",
				Value:       16,
				Destination: &batchSize,
			},
			&cli.Int64Flag{
				Name:        "hidden",
				Usage:       "model hidden size",
				Value:       64,
				Destination: &hidden,
			},
			&cli.Float64Flag{
				Name:        "lr",
				Usage:       "learning rate",
				Value:       3e-4,
				Destination: &lr,
			},
			&cli.Float64Flag{
				Name:        "grad-clip",
				Usage:       "gradient norm ceiling",
				Value:       1.0,
				Destination: &clip,
			},
			&cli.StringFlag{
				Name:        "snapshot",
				Usage:       "snapshot path (local file or s3://bucket/key)",
				Value:       "chargpt-snapshot.json",
				Destination: &snapshot,
			},
			&cli.Int64Flag{
				Name:        "save-every",
				Usage:       "checkpoint cadence in epochs",
				Value:       1,
				Destination: &saveEvery,
			},
			&cli.Int64Flag{
				Name:        "log-every",
				Usage:       "step cadence for loss logging",
				Value:       100,
				Destination: &logEvery,
			},
			&cli.Float64Flag{
				Name:        "eval-split",
				Usage:       "fraction of the corpus held out for eval (0 disables)",
				Value:       0.1,
				Destination: &evalSplit,
			},
			&cli.BoolFlag{
				Name:        "amp",
				Usage:       "enable loss-scaled mixed precision",
				Destination: &useAMP,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for shuffling and weight init",
				Value:       1337,
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if dataPath == "" {
				return fmt.Errorf("kiln: no corpus; pass --data")
			}
			corpus, err := os.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("kiln: read corpus: %w", err)
			}

			log := logger.Default()
			vocab := tokenizer.NewCharVocab(string(corpus))
			ids, err := vocab.Encode(string(corpus))
			if err != nil {
				return err
			}
			log.Info("corpus loaded", "chars", len(ids), "vocab", vocab.VocabSize())

			split := len(ids)
			if evalSplit > 0 && evalSplit < 1 {
				split = int(float64(len(ids)) * (1 - evalSplit))
			}
			trainDS := data.NewCharDataset(ids[:split], int(blockSize))
			var evalDS *data.CharDataset
			if split < len(ids) {
				evalDS = data.NewCharDataset(ids[split:], int(blockSize))
				if evalDS.Len() == 0 {
					evalDS = nil
				}
			}
			if trainDS.Len() == 0 {
				return fmt.Errorf("kiln: corpus shorter than block size %d", blockSize)
			}

			cfg := train.Config{
				MaxEpochs:    int(maxEpochs),
				GradNormClip: float32(clip),
				SnapshotPath: snapshot,
				SaveEvery:    int(saveEvery),
				UseAMP:       useAMP,
				LogEvery:     int(logEvery),
			}

			return runWorkers(ctx, int(workers), func(env train.Env, col train.Collective) error {
				model := nn.NewCharLM(vocab.VocabSize(), int(hidden), seed)
				opt := nn.NewAdamW(float32(lr), 0)

				newCharLoader := func(ds *data.CharDataset, shuffle bool) *data.Loader {
					return data.NewLoader(ds, data.Sampler{
						Size:    ds.Len(),
						Rank:    env.GlobalRank,
						World:   env.WorldSize,
						Shuffle: shuffle,
						Seed:    seed,
					}, data.LoaderOptions{
						BatchSize: int(batchSize),
						PadID:     vocab.PadID(),
					})
				}

				opts := train.Options{Collective: col, Logger: log}
				if evalDS != nil {
					opts.Eval = newCharLoader(evalDS, false)
				}
				t, err := train.New(cfg, env, model, opt, newCharLoader(trainDS, true), opts)
				if err != nil {
					return err
				}
				return t.Run(ctx)
			})
		},
	}
}
