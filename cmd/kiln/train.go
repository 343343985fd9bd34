package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"kiln/internal/data"
	"kiln/internal/logger"
	"kiln/internal/nn"
	"kiln/internal/status"
	"kiln/internal/tokenizer"
	"kiln/internal/train"
)

func trainCmd() *cli.Command {
	var (
		configPath string
		dataPath   string
		evalPath   string
		dataset    string
		snapshot   string
		maxEpochs  int64
		workers    int64
		statusAddr string
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Run supervised fine-tuning on a conversation dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to YAML config file",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "data",
				Usage:       "path to the training dataset (JSONL)",
				Destination: &dataPath,
			},
			&cli.StringFlag{
				Name:        "eval-data",
				Usage:       "path to a held-out eval dataset (JSONL)",
				Destination: &evalPath,
			},
			&cli.StringFlag{
				Name:        "dataset",
				Usage:       "dataset kind: chat or reasoning",
				Destination: &dataset,
			},
			&cli.StringFlag{
				Name:        "snapshot",
				Usage:       "snapshot path (local file or s3://bucket/key)",
				Destination: &snapshot,
			},
			&cli.Int64Flag{
				Name:        "max-epochs",
				Usage:       "total number of epochs to train",
				Destination: &maxEpochs,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Usage:       "size of the in-process worker group",
				Value:       1,
				Destination: &workers,
			},
			&cli.StringFlag{
				Name:        "status-addr",
				Usage:       "listen address for the status endpoint",
				Destination: &statusAddr,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.IsSet("data") {
				cfg.DataPath = dataPath
			}
			if cmd.IsSet("eval-data") {
				cfg.EvalPath = evalPath
			}
			if cmd.IsSet("dataset") {
				cfg.Dataset = dataset
			}
			if cmd.IsSet("snapshot") {
				cfg.SnapshotPath = snapshot
			}
			if cmd.IsSet("max-epochs") {
				cfg.MaxEpochs = int(maxEpochs)
			}
			if cmd.IsSet("status-addr") {
				cfg.StatusAddr = statusAddr
			}
			if cfg.DataPath == "" {
				return fmt.Errorf("kiln: no training data; pass --data or set data_path")
			}

			log := logger.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

			src, err := data.OpenSource(cfg.Dataset, cfg.DataPath)
			if err != nil {
				return err
			}
			renderer := tokenizer.ChatML{Tok: tokenizer.ByteTokenizer{}}

			maxSamples := 0
			if cfg.Test {
				maxSamples = cfg.MaxSamples
			}
			buildOpts := data.BuildOptions{
				MaxLength:  cfg.MaxLength,
				NumProc:    cfg.NumProc,
				MaxSamples: maxSamples,
				Progress:   true,
			}
			ds, err := data.Build(src, renderer, buildOpts)
			if err != nil {
				return err
			}
			log.Info("dataset ready", "examples", ds.Len(), "kind", cfg.Dataset)

			var evalDS *data.Dataset
			if cfg.EvalPath != "" {
				evalSrc, err := data.OpenSource(cfg.Dataset, cfg.EvalPath)
				if err != nil {
					return err
				}
				if evalDS, err = data.Build(evalSrc, renderer, buildOpts); err != nil {
					return err
				}
			}

			var reporter train.Reporter
			if cfg.StatusAddr != "" {
				srv := status.NewServer()
				go func() {
					if err := srv.Start(ctx, cfg.StatusAddr); err != nil {
						log.Warn("status server stopped", "error", err)
					}
				}()
				log.Info("status endpoint up", "addr", cfg.StatusAddr, "run_id", srv.RunID())
				reporter = srv
			}

			return runWorkers(ctx, int(workers), func(env train.Env, col train.Collective) error {
				model := nn.NewCharLM(tokenizer.ByteVocabSize, cfg.HiddenSize, cfg.Seed)
				opt, err := buildOptimizer(cfg)
				if err != nil {
					return err
				}
				opts := train.Options{
					Collective: col,
					Logger:     log,
				}
				opts.Eval = evalLoader(evalDS, cfg, env, renderer.PadID())
				if env.IsCoordinator() {
					opts.Reporter = reporter
				}
				loader := newLoader(ds, cfg, env, renderer.PadID(), cfg.Shuffle)

				t, err := train.New(trainConfig(cfg), env, model, opt, loader, opts)
				if err != nil {
					return err
				}
				return t.Run(ctx)
			})
		},
	}
}

func trainConfig(cfg Config) train.Config {
	return train.Config{
		MaxEpochs:    cfg.MaxEpochs,
		GradNormClip: float32(cfg.GradNormClip),
		SnapshotPath: cfg.SnapshotPath,
		SaveEvery:    cfg.SaveEvery,
		UseAMP:       cfg.UseAMP,
		LogEvery:     cfg.LogEvery,
	}
}

func newLoader(ds data.Indexed, cfg Config, env train.Env, padID int, shuffle bool) *data.Loader {
	return data.NewLoader(ds, data.Sampler{
		Size:     ds.Len(),
		Rank:     env.GlobalRank,
		World:    env.WorldSize,
		Shuffle:  shuffle,
		DropLast: cfg.DropLast,
		Seed:     cfg.Seed,
	}, data.LoaderOptions{
		BatchSize: cfg.BatchSize,
		PadID:     padID,
		Prefetch:  cfg.NumProc,
	})
}

// evalLoader returns nil (not a typed-nil Loader) when there is no eval
// dataset, and never shuffles the held-out partition.
func evalLoader(ds *data.Dataset, cfg Config, env train.Env, padID int) train.BatchProvider {
	if ds == nil {
		return nil
	}
	return newLoader(ds, cfg, env, padID, false)
}

func buildOptimizer(cfg Config) (nn.Optimizer, error) {
	switch cfg.Optimizer {
	case "sgd":
		return nn.NewSGD(float32(cfg.LearningRate), 0.9), nil
	case "adamw", "":
		return nn.NewAdamW(float32(cfg.LearningRate), float32(cfg.WeightDecay)), nil
	default:
		return nil, fmt.Errorf("kiln: unknown optimizer %q (want sgd or adamw)", cfg.Optimizer)
	}
}
