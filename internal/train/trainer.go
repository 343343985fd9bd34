package train

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"kiln/internal/data"
	"kiln/internal/nn"
	"kiln/internal/storage"
)

// BatchProvider yields the batches of one worker's data partition for a
// given epoch. data.Loader is the production implementation.
type BatchProvider interface {
	Steps() int
	Epoch(ctx context.Context, epoch int) <-chan data.Batch
}

// Options carries the trainer's optional collaborators.
type Options struct {
	// Eval is the held-out partition; nil disables the eval pass.
	Eval BatchProvider
	// Collective defaults to Solo.
	Collective Collective
	// Store defaults to one opened from the snapshot path scheme.
	Store storage.Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Reporter defaults to a no-op.
	Reporter Reporter
}

// Trainer drives one worker through the epoch loop. Startup either resumes
// from the snapshot at the configured path or, when none exists, starts
// fresh; that choice is made independently and identically on every worker
// since they all read the same immutable artifact. Only the coordinator
// ever writes it.
type Trainer struct {
	cfg      Config
	env      Env
	model    nn.Model
	opt      nn.Optimizer
	train    BatchProvider
	eval     BatchProvider
	col      Collective
	store    storage.Store
	log      *slog.Logger
	reporter Reporter
	scaler   *GradScaler

	epochsRun int
	resumed   bool
}

// New validates the configuration and assembles a trainer.
func New(cfg Config, env Env, model nn.Model, opt nn.Optimizer, trainData BatchProvider, opts Options) (*Trainer, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if model == nil || opt == nil || trainData == nil {
		return nil, fmt.Errorf("train: model, optimizer and train data are required")
	}
	t := &Trainer{
		cfg:      cfg,
		env:      env,
		model:    model,
		opt:      opt,
		train:    trainData,
		eval:     opts.Eval,
		col:      opts.Collective,
		store:    opts.Store,
		log:      opts.Logger,
		reporter: opts.Reporter,
	}
	if t.col == nil {
		t.col = Solo{}
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if t.reporter == nil {
		t.reporter = nopReporter{}
	}
	if cfg.UseAMP {
		t.scaler = NewGradScaler()
	}
	t.log = t.log.With("rank", env.GlobalRank)
	return t, nil
}

// EpochsRun returns the number of completed epochs.
func (t *Trainer) EpochsRun() int { return t.epochsRun }

// Run executes the remaining epochs. Fatal errors abort the run with the
// triggering error; the last written snapshot stays valid as the recovery
// point for a restart.
func (t *Trainer) Run(ctx context.Context) error {
	if t.store == nil {
		store, err := storage.Open(ctx, t.cfg.SnapshotPath)
		if err != nil {
			return err
		}
		t.store = store
	}
	if err := t.restore(ctx); err != nil {
		return err
	}

	for epoch := t.epochsRun + 1; epoch <= t.cfg.MaxEpochs; epoch++ {
		if err := t.runEpoch(ctx, epoch, t.train, true); err != nil {
			return fmt.Errorf("train: epoch %d: %w", epoch, err)
		}
		t.epochsRun = epoch

		if t.env.IsCoordinator() && epoch%t.cfg.SaveEvery == 0 {
			if err := t.checkpoint(ctx, epoch); err != nil {
				return err
			}
		}

		if t.eval != nil {
			if err := t.runEpoch(ctx, epoch, t.eval, false); err != nil {
				return fmt.Errorf("train: epoch %d eval: %w", epoch, err)
			}
		}
	}
	return nil
}

// restore loads the snapshot if one exists. A missing snapshot is the
// expected fresh-start case; anything else wrong with the artifact is
// fatal, because training from half-restored state would be silently
// incorrect.
func (t *Trainer) restore(ctx context.Context) error {
	snap, err := LoadSnapshot(ctx, t.store, t.cfg.SnapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		t.log.Info("no snapshot found, training from scratch", "path", t.cfg.SnapshotPath)
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.model.LoadStateDict(snap.ModelState); err != nil {
		return fmt.Errorf("train: restore model: %w", err)
	}
	if err := t.opt.LoadState(snap.OptimizerState); err != nil {
		return fmt.Errorf("train: restore optimizer: %w", err)
	}
	t.epochsRun = snap.FinishedEpoch
	t.resumed = true
	t.log.Info("resuming from snapshot", "path", t.cfg.SnapshotPath, "finished_epoch", snap.FinishedEpoch)
	return nil
}

func (t *Trainer) checkpoint(ctx context.Context, epoch int) error {
	snap := Snapshot{
		ModelState:     t.model.StateDict(),
		OptimizerState: t.opt.State(),
		FinishedEpoch:  epoch,
	}
	if err := SaveSnapshot(ctx, t.store, t.cfg.SnapshotPath, snap); err != nil {
		return err
	}
	t.log.Info("snapshot saved", "path", t.cfg.SnapshotPath, "epoch", epoch)
	return nil
}

func (t *Trainer) runEpoch(ctx context.Context, epoch int, batches BatchProvider, training bool) error {
	step := 0
	for b := range batches.Epoch(ctx, epoch) {
		loss, err := t.runBatch(b, training)
		if err != nil {
			return err
		}
		if step%t.cfg.LogEvery == 0 {
			if training {
				t.log.Info("train step", "epoch", epoch, "step", step, "loss", loss)
				t.reporter.Observe(Metrics{Epoch: epoch, Step: step, Loss: loss, Resumed: t.resumed, UpdatedAt: time.Now()})
			} else if err := t.gatherEvalLoss(epoch, step, loss); err != nil {
				return err
			}
		}
		step++
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// gatherEvalLoss collects every worker's eval loss at the coordinator,
// which logs the aggregated view.
func (t *Trainer) gatherEvalLoss(epoch, step int, loss float32) error {
	losses, coordinator, err := t.col.GatherLoss(loss)
	if err != nil {
		return fmt.Errorf("gather eval loss: %w", err)
	}
	if !coordinator {
		return nil
	}
	for rank, l := range losses {
		t.log.Info("eval loss", "from_rank", rank, "epoch", epoch, "step", step, "loss", l)
	}
	t.reporter.Observe(Metrics{Epoch: epoch, Step: step, EvalLoss: meanOf(losses), Resumed: t.resumed, UpdatedAt: time.Now()})
	return nil
}

// runBatch performs one step: forward loss, and for training batches the
// backward pass, cross-worker gradient averaging, norm clipping and the
// optimizer update. Eval batches stop after the forward pass.
func (t *Trainer) runBatch(b data.Batch, training bool) (float32, error) {
	loss, err := t.model.Forward(b.InputIDs, b.Labels)
	if err != nil {
		return 0, err
	}
	if !training {
		return loss, nil
	}

	params := t.model.Parameters()
	nn.ZeroGrad(params)

	scale := float32(1)
	if t.scaler != nil {
		scale = t.scaler.Scale()
	}
	if err := t.model.Backward(scale); err != nil {
		return 0, err
	}
	if err := t.col.AverageGradients(params); err != nil {
		return 0, err
	}
	if t.scaler != nil {
		nn.ScaleGrads(params, 1/scale)
		if !nn.GradsFinite(params) {
			// Overflowed step: skip the update and back the scale off.
			t.scaler.Update(true)
			return loss, nil
		}
	}
	nn.ClipGradNorm(params, t.cfg.GradNormClip)
	t.opt.Step(params)
	if t.scaler != nil {
		t.scaler.Update(false)
	}
	return loss, nil
}

func meanOf(vs []float32) float32 {
	if len(vs) == 0 {
		return 0
	}
	var sum float32
	for _, v := range vs {
		sum += v
	}
	return sum / float32(len(vs))
}
