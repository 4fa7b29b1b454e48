package bgan

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
)

// Phase names reported in NumericErrors.
const (
	PhaseDiscriminator = "discriminator"
	PhaseGenerator     = "generator"
)

// TrainingState is the mutable state of a training run.
// It is passed into and returned from every step.
type TrainingState struct {
	Epoch int
	Step  int

	GenOpt  AdamState
	DiscOpt AdamState
}

// StepStats summarizes a training step.
type StepStats struct {
	DiscLoss float64
	GenLoss  float64

	// RealProb is the mean discriminator probability of
	// real samples being real.
	RealProb float64

	// FakeProb is the mean discriminator probability of the
	// generator's Monte-Carlo samples being real.
	FakeProb float64
}

// A Batch is a list of samples from an output space.
type Batch struct {
	Space   OutputSpace
	Samples []linalg.Vector
}

// Shape returns [batch, dim, pixels].
func (b *Batch) Shape() []int {
	return []int{len(b.Samples), b.Space.Dim(), b.Space.Pixels}
}

// BGAN trains a generator over a discrete output space
// with the boundary-seeking estimator.
type BGAN struct {
	Generator     neuralnet.Network
	Discriminator neuralnet.Network

	GenOpt  *Adam
	DiscOpt *Adam

	Space OutputSpace
	Loss  Loss

	// LatentDim is the size of the generator's standard
	// normal input vectors.
	LatentDim int

	// MCSamples is the number of samples drawn per latent
	// vector in the generator phase.
	MCSamples int

	// Rand is the source of latent vectors and samples.
	Rand *rand.Rand
}

// NewTrainingState creates a state with fresh optimizer
// moments for both networks.
func NewTrainingState(b *BGAN) TrainingState {
	return TrainingState{
		GenOpt:  NewAdamState(b.Generator.Parameters()),
		DiscOpt: NewAdamState(b.Discriminator.Parameters()),
	}
}

// Latents draws n latent vectors.
func (b *BGAN) Latents(n int) []linalg.Vector {
	res := make([]linalg.Vector, n)
	for i := range res {
		res[i] = make(linalg.Vector, b.LatentDim)
		for j := range res[i] {
			res[i][j] = b.Rand.NormFloat64()
		}
	}
	return res
}

// Generate draws one sample per latent vector.
// No gradients are tracked.
func (b *BGAN) Generate(latents []linalg.Vector) (*Batch, error) {
	res := &Batch{Space: b.Space, Samples: make([]linalg.Vector, len(latents))}
	for i, z := range latents {
		logits, err := b.logits(z)
		if err != nil {
			return nil, err
		}
		res.Samples[i] = b.Space.Sample(logits.Output(), b.Rand)
	}
	return res, nil
}

// Step runs a discriminator phase followed by a generator
// phase with the same batch size.
// The step counter is advanced before either phase runs.
func (b *BGAN) Step(s TrainingState, real *Batch) (TrainingState, StepStats, error) {
	s.Step++
	s, discStats, err := b.DiscriminatorPhase(s, real)
	if err != nil {
		return s, discStats, err
	}
	s, genStats, err := b.GeneratorPhase(s, len(real.Samples))
	genStats.DiscLoss = discStats.DiscLoss
	genStats.RealProb = discStats.RealProb
	return s, genStats, err
}

// DiscriminatorPhase updates the discriminator to separate
// the real batch from an equally sized generated batch.
// The generator is only evaluated, never differentiated.
func (b *BGAN) DiscriminatorPhase(s TrainingState, real *Batch) (TrainingState, StepStats, error) {
	var stats StepStats
	if len(real.Samples) == 0 {
		return s, stats, &ShapeError{Context: "real batch", Expected: 1, Actual: 0}
	}
	fake, err := b.Generate(b.Latents(len(real.Samples)))
	if err != nil {
		return s, stats, errors.Wrap(err, "generate fake batch")
	}
	realScores, err := b.scores(real.Samples)
	if err != nil {
		return s, stats, errors.Wrap(err, "score real batch")
	}
	fakeScores, err := b.scores(fake.Samples)
	if err != nil {
		return s, stats, errors.Wrap(err, "score fake batch")
	}
	loss, err := b.Loss.DiscriminatorLoss(realScores, fakeScores)
	if err != nil {
		return s, stats, err
	}
	stats.DiscLoss = loss.Output()[0]
	stats.RealProb = meanProb(realScores)
	if !finite(stats.DiscLoss) {
		return s, stats, &NumericError{Phase: PhaseDiscriminator, Epoch: s.Epoch, Step: s.Step,
			Value: stats.DiscLoss}
	}

	params := b.Discriminator.Parameters()
	grad := autofunc.NewGradient(params)
	loss.PropagateGradient(linalg.Vector{1}, grad)
	if err := b.DiscOpt.Step(params, grad, &s.DiscOpt); err != nil {
		return s, stats, errors.Wrap(err, "discriminator update")
	}
	return s, stats, nil
}

// GeneratorPhase draws batchSize fresh latent vectors,
// samples MCSamples outputs for each, scores them with the
// frozen discriminator, and descends the weighted
// generator loss.
func (b *BGAN) GeneratorPhase(s TrainingState, batchSize int) (TrainingState, StepStats, error) {
	var stats StepStats
	if b.MCSamples < 1 {
		return s, stats, &ShapeError{Context: "monte-carlo samples", Expected: 1,
			Actual: b.MCSamples}
	}

	latents := b.Latents(batchSize)
	logitResults := make([]autofunc.Result, batchSize)
	pools := make([]*autofunc.Variable, batchSize)
	logProbs := make([][]autofunc.Result, batchSize)
	scores := make([][]linalg.Vector, batchSize)
	var allScores []autofunc.Result
	for i, z := range latents {
		logits, err := b.logits(z)
		if err != nil {
			return s, stats, err
		}
		logitResults[i] = logits
		pools[i] = &autofunc.Variable{Vector: logits.Output()}
		logProbs[i] = make([]autofunc.Result, b.MCSamples)
		scores[i] = make([]linalg.Vector, b.MCSamples)
		for m := range logProbs[i] {
			sample := b.Space.Sample(pools[i].Vector, b.Rand)
			logProbs[i][m] = b.Space.LogProb(pools[i], sample)
			score := b.Discriminator.Apply(&autofunc.Variable{Vector: sample})
			scores[i][m] = score.Output()
			allScores = append(allScores, score)
		}
	}
	stats.FakeProb = meanProb(allScores)

	loss, err := b.Loss.GeneratorLoss(logProbs, scores)
	if err != nil {
		if ne, ok := err.(*NumericError); ok {
			ne.Phase, ne.Epoch, ne.Step = PhaseGenerator, s.Epoch, s.Step
		}
		return s, stats, err
	}
	stats.GenLoss = loss.Output()[0]
	if !finite(stats.GenLoss) {
		return s, stats, &NumericError{Phase: PhaseGenerator, Epoch: s.Epoch, Step: s.Step,
			Value: stats.GenLoss}
	}

	params := b.Generator.Parameters()
	grad := autofunc.NewGradient(params)
	for _, p := range pools {
		grad[p] = make(linalg.Vector, len(p.Vector))
	}
	loss.PropagateGradient(linalg.Vector{1}, grad)
	for i, p := range pools {
		upstream := grad[p]
		delete(grad, p)
		logitResults[i].PropagateGradient(upstream, grad)
	}
	if err := b.GenOpt.Step(params, grad, &s.GenOpt); err != nil {
		return s, stats, errors.Wrap(err, "generator update")
	}
	return s, stats, nil
}

func (b *BGAN) logits(z linalg.Vector) (autofunc.Result, error) {
	if len(z) != b.LatentDim {
		return nil, &ShapeError{Context: "latent vector", Expected: b.LatentDim, Actual: len(z)}
	}
	logits := b.Generator.Apply(&autofunc.Variable{Vector: z})
	if n := len(logits.Output()); n != b.Space.SampleSize() {
		return nil, &ShapeError{Context: "generator output", Expected: b.Space.SampleSize(),
			Actual: n}
	}
	return logits, nil
}

func (b *BGAN) scores(samples []linalg.Vector) ([]autofunc.Result, error) {
	res := make([]autofunc.Result, len(samples))
	for i, x := range samples {
		if len(x) != b.Space.SampleSize() {
			return nil, &ShapeError{Context: fmt.Sprintf("sample %d", i),
				Expected: b.Space.SampleSize(), Actual: len(x)}
		}
		res[i] = b.Discriminator.Apply(&autofunc.Variable{Vector: x})
	}
	return res, nil
}

func meanProb(scores []autofunc.Result) float64 {
	var sum float64
	var count int
	for _, s := range scores {
		for _, p := range (autofunc.Sigmoid{}).Apply(s).Output() {
			sum += p
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
