package bgan

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// A NumericPolicy decides what Run does when a step
// reports a NumericError.
type NumericPolicy string

const (
	AbortOnNaN NumericPolicy = "abort"
	SkipOnNaN  NumericPolicy = "skip"
)

// RunConfig captures the knobs of the training loop.
type RunConfig struct {
	// Epochs is the epoch count at which training stops.
	// A resumed state continues from its own epoch.
	Epochs int

	Loader LoaderOptions

	// LogEvery, SampleEvery, and CheckpointEvery disable
	// their hooks when they are 0. The first two count
	// steps, the last counts epochs.
	LogEvery        int
	SampleEvery     int
	CheckpointEvery int

	CheckpointDir string
	Sampler       *SampleWriter

	OnNaN NumericPolicy
}

// Run trains b on the dataset until cfg.Epochs epochs are
// complete, an error occurs, or ctx is done.
//
// The context is only checked between batches, so a step
// in progress always finishes.
// Failures to write samples or checkpoints are logged and
// training continues.
func Run(ctx context.Context, cfg RunConfig, b *BGAN, data Dataset,
	s TrainingState) (TrainingState, error) {
	if cfg.OnNaN == "" {
		cfg.OnNaN = AbortOnNaN
	}
	var window logWindow
	window.reset()

	for s.Epoch < cfg.Epochs {
		var err error
		s, err = runEpoch(ctx, cfg, b, data, s, &window)
		if err != nil {
			return s, err
		}
		s.Epoch++
		if cfg.CheckpointEvery > 0 && cfg.CheckpointDir != "" &&
			s.Epoch%cfg.CheckpointEvery == 0 {
			path := CheckpointPath(cfg.CheckpointDir, s.Epoch)
			if err := SaveCheckpoint(path, b.Checkpoint(s)); err != nil {
				log.Printf("epoch=%d checkpoint failed: %v", s.Epoch, err)
			} else {
				log.Printf("epoch=%d checkpoint=%s", s.Epoch, path)
			}
		}
	}
	return s, nil
}

func runEpoch(ctx context.Context, cfg RunConfig, b *BGAN, data Dataset, s TrainingState,
	window *logWindow) (TrainingState, error) {
	epochCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, loadErrs, err := StartLoader(epochCtx, data, b.Space, cfg.Loader)
	if err != nil {
		return s, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		batch, ok := <-batches
		if !ok {
			break
		}
		var stats StepStats
		s, stats, err = b.Step(s, batch)
		if err != nil {
			if IsNumericError(err) && cfg.OnNaN == SkipOnNaN {
				log.Printf("epoch=%d step=%d skipped: %v", s.Epoch, s.Step, err)
				continue
			}
			return s, err
		}
		window.record(len(batch.Samples), stats)

		if cfg.LogEvery > 0 && s.Step%cfg.LogEvery == 0 {
			window.flush(s)
		}
		if cfg.Sampler != nil && cfg.SampleEvery > 0 && s.Step%cfg.SampleEvery == 0 {
			if path, err := cfg.Sampler.Write(b.Generator, b.Space, s.Step); err != nil {
				log.Printf("step=%d sample failed: %v", s.Step, err)
			} else {
				log.Printf("step=%d sample=%s", s.Step, path)
			}
		}
	}

	if err := <-loadErrs; err != nil {
		return s, errors.Wrap(err, "load batch")
	}
	return s, ctx.Err()
}

// logWindow averages step statistics between log lines.
type logWindow struct {
	discLoss []float64
	genLoss  []float64
	realProb []float64
	fakeProb []float64
	samples  int
	start    time.Time
}

func (w *logWindow) record(batchSize int, stats StepStats) {
	w.discLoss = append(w.discLoss, stats.DiscLoss)
	w.genLoss = append(w.genLoss, stats.GenLoss)
	w.realProb = append(w.realProb, stats.RealProb)
	w.fakeProb = append(w.fakeProb, stats.FakeProb)
	w.samples += batchSize
}

func (w *logWindow) flush(s TrainingState) {
	if len(w.discLoss) == 0 {
		return
	}
	var samplesPerSec float64
	if elapsed := time.Since(w.start).Seconds(); elapsed > 0 {
		samplesPerSec = float64(w.samples) / elapsed
	}
	log.Printf("epoch=%d step=%d disc_loss=%f gen_loss=%f real_prob=%.3f fake_prob=%.3f "+
		"samples_per_sec=%.1f",
		s.Epoch,
		s.Step,
		stat.Mean(w.discLoss, nil),
		stat.Mean(w.genLoss, nil),
		stat.Mean(w.realProb, nil),
		stat.Mean(w.fakeProb, nil),
		samplesPerSec,
	)
	w.reset()
}

func (w *logWindow) reset() {
	w.discLoss = w.discLoss[:0]
	w.genLoss = w.genLoss[:0]
	w.realProb = w.realProb[:0]
	w.fakeProb = w.fakeProb[:0]
	w.samples = 0
	w.start = time.Now()
}
