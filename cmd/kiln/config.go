package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the training run configuration. Values come from, in increasing
// precedence: built-in defaults, the YAML config file, KILN_* environment
// variables, and CLI flags.
type Config struct {
	// Data preparation
	Dataset    string `koanf:"dataset" yaml:"dataset"`
	DataPath   string `koanf:"data_path" yaml:"data_path"`
	EvalPath   string `koanf:"eval_path" yaml:"eval_path"`
	MaxLength  int    `koanf:"max_length" yaml:"max_length"`
	NumProc    int    `koanf:"num_proc" yaml:"num_proc"`
	BatchSize  int    `koanf:"per_device_train_batch_size" yaml:"per_device_train_batch_size"`
	Shuffle    bool   `koanf:"shuffle" yaml:"shuffle"`
	DropLast   bool   `koanf:"drop_last" yaml:"drop_last"`
	Test       bool   `koanf:"test" yaml:"test"`
	MaxSamples int    `koanf:"max_samples" yaml:"max_samples"`

	// Trainer
	MaxEpochs    int     `koanf:"max_epochs" yaml:"max_epochs"`
	GradNormClip float64 `koanf:"grad_norm_clip" yaml:"grad_norm_clip"`
	SnapshotPath string  `koanf:"snapshot_path" yaml:"snapshot_path"`
	SaveEvery    int     `koanf:"save_every" yaml:"save_every"`
	UseAMP       bool    `koanf:"use_amp" yaml:"use_amp"`
	LogEvery     int     `koanf:"log_every" yaml:"log_every"`
	Seed         int64   `koanf:"seed" yaml:"seed"`

	// Model and optimizer (the built-in demo model)
	HiddenSize   int     `koanf:"hidden_size" yaml:"hidden_size"`
	Optimizer    string  `koanf:"optimizer" yaml:"optimizer"`
	LearningRate float64 `koanf:"learning_rate" yaml:"learning_rate"`
	WeightDecay  float64 `koanf:"weight_decay" yaml:"weight_decay"`

	// Observability
	StatusAddr string `koanf:"status_addr" yaml:"status_addr"`
	LogLevel   string `koanf:"log_level" yaml:"log_level"`
	LogFormat  string `koanf:"log_format" yaml:"log_format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Dataset:      "chat",
		NumProc:      4,
		BatchSize:    8,
		Shuffle:      true,
		MaxEpochs:    10,
		GradNormClip: 1.0,
		SnapshotPath: "snapshot.json",
		SaveEvery:    1,
		LogEvery:     100,
		Seed:         1337,
		HiddenSize:   64,
		Optimizer:    "adamw",
		LearningRate: 3e-4,
		LogLevel:     "info",
		LogFormat:    "pretty",
	}
}

// LoadConfig reads the config file (if path is non-empty) and overlays
// KILN_* environment variables.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("KILN_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "KILN_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading env overrides: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func configCmd() *cli.Command {
	var out string
	return &cli.Command{
		Name:  "config",
		Usage: "Write a config file with the default settings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path",
				Value:       "kiln.yaml",
				Destination: &out,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := DefaultConfig().Save(out); err != nil {
				return err
			}
			fmt.Println("wrote", out)
			return nil
		},
	}
}
