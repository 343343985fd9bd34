package train

import "fmt"

// Config controls one training run.
type Config struct {
	// MaxEpochs is the final epoch number; training stops after it
	// completes.
	MaxEpochs int
	// GradNormClip is the global gradient norm ceiling. Zero disables
	// clipping.
	GradNormClip float32
	// SnapshotPath is where the recovery snapshot lives (local path or
	// s3:// URL). Empty defaults to "snapshot.json".
	SnapshotPath string
	// SaveEvery is the checkpoint cadence in epochs.
	SaveEvery int
	// UseAMP enables loss-scaled mixed-precision stepping.
	UseAMP bool
	// LogEvery is the step cadence for loss logging and eval gathering.
	// Zero defaults to 100.
	LogEvery int
}

func (c *Config) normalize() error {
	if c.MaxEpochs < 1 {
		return fmt.Errorf("train: max_epochs must be at least 1")
	}
	if c.SaveEvery < 1 {
		c.SaveEvery = 1
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = "snapshot.json"
	}
	if c.LogEvery < 1 {
		c.LogEvery = 100
	}
	return nil
}
