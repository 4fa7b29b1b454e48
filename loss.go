package bgan

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
	"gonum.org/v1/gonum/floats"
)

// DefaultEpsilon is the clamp applied to discriminator
// probabilities before taking logs.
const DefaultEpsilon = 1e-7

// A Loss computes the discriminator loss and the
// boundary-seeking generator loss for an output space.
type Loss interface {
	// DiscriminatorLoss computes the mean cross-entropy of
	// classifying real scores as real and fake scores as
	// fake.
	DiscriminatorLoss(real, fake []autofunc.Result) (autofunc.Result, error)

	// Weights computes normalized importance weights for
	// scores grouped as [batch][mcSamples].
	Weights(scores [][]linalg.Vector) ([][]float64, error)

	// GeneratorLoss computes the importance-weighted
	// negative log-likelihood of generated samples.
	// Both arguments are grouped as [batch][mcSamples].
	// The weights derived from scores are constants.
	GeneratorLoss(logProbs [][]autofunc.Result, scores [][]linalg.Vector) (autofunc.Result, error)
}

// NewLoss creates the Loss matching an output space.
func NewLoss(space OutputSpace) Loss {
	if space.Binary() {
		return &BinaryLoss{}
	}
	return &MultinomialLoss{Classes: space.Classes}
}

// BinaryLoss is the estimator for Bernoulli outputs.
// The discriminator produces a single logit per sample.
type BinaryLoss struct {
	// Epsilon is the probability clamp.
	// If 0, DefaultEpsilon is used.
	Epsilon float64
}

// DiscriminatorLoss computes the discriminator loss.
func (b *BinaryLoss) DiscriminatorLoss(real, fake []autofunc.Result) (autofunc.Result, error) {
	return discriminatorLoss(real, fake, 1)
}

// Weights computes importance weights.
func (b *BinaryLoss) Weights(scores [][]linalg.Vector) ([][]float64, error) {
	return importanceWeights(scores, 1, epsilonOrDefault(b.Epsilon))
}

// GeneratorLoss computes the generator loss.
func (b *BinaryLoss) GeneratorLoss(logProbs [][]autofunc.Result,
	scores [][]linalg.Vector) (autofunc.Result, error) {
	return generatorLoss(b, logProbs, scores)
}

// MultinomialLoss is the estimator for categorical
// outputs.
// The discriminator produces one real/fake logit per
// class, and the per-class log-ratios are averaged before
// normalizing within a Monte-Carlo group.
type MultinomialLoss struct {
	Classes int

	// Epsilon is the probability clamp.
	// If 0, DefaultEpsilon is used.
	Epsilon float64
}

// DiscriminatorLoss computes the discriminator loss.
func (m *MultinomialLoss) DiscriminatorLoss(real, fake []autofunc.Result) (autofunc.Result, error) {
	return discriminatorLoss(real, fake, m.Classes)
}

// Weights computes importance weights.
func (m *MultinomialLoss) Weights(scores [][]linalg.Vector) ([][]float64, error) {
	return importanceWeights(scores, m.Classes, epsilonOrDefault(m.Epsilon))
}

// GeneratorLoss computes the generator loss.
func (m *MultinomialLoss) GeneratorLoss(logProbs [][]autofunc.Result,
	scores [][]linalg.Vector) (autofunc.Result, error) {
	return generatorLoss(m, logProbs, scores)
}

// Renormalize scales non-negative weights so that they sum
// to 1.
// Weights that sum to 0 become uniform.
func Renormalize(w []float64) []float64 {
	res := append([]float64{}, w...)
	sum := floats.Sum(res)
	if sum == 0 {
		for i := range res {
			res[i] = 1 / float64(len(res))
		}
		return res
	}
	floats.Scale(1/sum, res)
	return res
}

func epsilonOrDefault(eps float64) float64 {
	if eps == 0 {
		return DefaultEpsilon
	}
	return eps
}

func discriminatorLoss(real, fake []autofunc.Result, dim int) (autofunc.Result, error) {
	realCost, err := meanSigmoidCE(real, 1, dim)
	if err != nil {
		return nil, errors.Wrap(err, "real scores")
	}
	fakeCost, err := meanSigmoidCE(fake, 0, dim)
	if err != nil {
		return nil, errors.Wrap(err, "fake scores")
	}
	return autofunc.Add(realCost, fakeCost), nil
}

func meanSigmoidCE(scores []autofunc.Result, label float64, dim int) (autofunc.Result, error) {
	if len(scores) == 0 {
		return nil, &ShapeError{Context: "score batch", Expected: 1, Actual: 0}
	}
	target := make(linalg.Vector, dim)
	for i := range target {
		target[i] = label
	}
	var sum autofunc.Result
	for i, s := range scores {
		if n := len(s.Output()); n != dim {
			return nil, &ShapeError{Context: fmt.Sprintf("score %d", i), Expected: dim, Actual: n}
		}
		cost := neuralnet.SigmoidCECost{}.Cost(target, s)
		if sum == nil {
			sum = cost
		} else {
			sum = autofunc.Add(sum, cost)
		}
	}
	return autofunc.Scale(sum, 1/float64(len(scores)*dim)), nil
}

func importanceWeights(scores [][]linalg.Vector, dim int, eps float64) ([][]float64, error) {
	if len(scores) == 0 || len(scores[0]) == 0 {
		return nil, &ShapeError{Context: "weight groups", Expected: 1, Actual: 0}
	}
	groupSize := len(scores[0])
	res := make([][]float64, len(scores))
	for g, group := range scores {
		if len(group) != groupSize {
			return nil, &ShapeError{Context: fmt.Sprintf("group %d", g), Expected: groupSize,
				Actual: len(group)}
		}
		logRatios := make([]float64, len(group))
		for m, s := range group {
			if len(s) != dim {
				return nil, &ShapeError{Context: fmt.Sprintf("group %d score %d", g, m),
					Expected: dim, Actual: len(s)}
			}
			logRatios[m] = meanLogRatio(s, eps)
		}
		weights := normalizeLogWeights(logRatios)
		for _, w := range weights {
			if !finite(w) || w < 0 {
				return nil, &NumericError{Phase: "weights", Value: w}
			}
		}
		res[g] = weights
	}
	return res, nil
}

// meanLogRatio computes mean(log(d/(1-d))) over the score
// components, with d clamped to [eps, 1-eps].
func meanLogRatio(scores linalg.Vector, eps float64) float64 {
	var sum float64
	probs := autofunc.Sigmoid{}.Apply(&autofunc.Variable{Vector: scores}).Output()
	for _, p := range probs {
		d := math.Min(math.Max(p, eps), 1-eps)
		sum += math.Log(d) - math.Log(1-d)
	}
	return sum / float64(len(scores))
}

func normalizeLogWeights(logWeights []float64) []float64 {
	res := make([]float64, len(logWeights))
	degenerate := true
	for _, x := range logWeights {
		if x != logWeights[0] {
			degenerate = false
			break
		}
	}
	if degenerate && finite(logWeights[0]) {
		for i := range res {
			res[i] = 1 / float64(len(res))
		}
		return res
	}
	lse := floats.LogSumExp(logWeights)
	for i, x := range logWeights {
		res[i] = math.Exp(x - lse)
	}
	return Renormalize(res)
}

func generatorLoss(l Loss, logProbs [][]autofunc.Result,
	scores [][]linalg.Vector) (autofunc.Result, error) {
	if len(logProbs) != len(scores) {
		return nil, &ShapeError{Context: "generator groups", Expected: len(scores),
			Actual: len(logProbs)}
	}
	weights, err := l.Weights(scores)
	if err != nil {
		return nil, err
	}
	weightVars := make([][]*autofunc.Variable, len(weights))
	for g, group := range weights {
		if len(logProbs[g]) != len(group) {
			return nil, &ShapeError{Context: fmt.Sprintf("generator group %d", g),
				Expected: len(group), Actual: len(logProbs[g])}
		}
		weightVars[g] = make([]*autofunc.Variable, len(group))
		for m, w := range group {
			if n := len(logProbs[g][m].Output()); n != 1 {
				return nil, &ShapeError{Context: fmt.Sprintf("log-prob %d/%d", g, m),
					Expected: 1, Actual: n}
			}
			weightVars[g][m] = &autofunc.Variable{Vector: linalg.Vector{w}}
		}
	}
	return weightedNegLogProb(logProbs, weightVars), nil
}

// weightedNegLogProb averages -sum(w*logProb) over groups.
//
// The weight variables are fresh and never part of the
// caller's gradient, so no gradient reaches the
// discriminator scores they were computed from.
func weightedNegLogProb(logProbs [][]autofunc.Result,
	weights [][]*autofunc.Variable) autofunc.Result {
	var sum autofunc.Result
	for g, group := range logProbs {
		for m, lp := range group {
			term := autofunc.Mul(weights[g][m], lp)
			if sum == nil {
				sum = term
			} else {
				sum = autofunc.Add(sum, term)
			}
		}
	}
	return autofunc.Scale(sum, -1/float64(len(logProbs)))
}
