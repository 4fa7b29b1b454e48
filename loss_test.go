package bgan

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/autofunc/functest"
	"github.com/unixpickle/num-analysis/linalg"
)

func randomScores(r *rand.Rand, batch, mc, dim int) [][]linalg.Vector {
	res := make([][]linalg.Vector, batch)
	for i := range res {
		res[i] = make([]linalg.Vector, mc)
		for j := range res[i] {
			res[i][j] = randomVector(r, dim)
			res[i][j].Scale(3)
		}
	}
	return res
}

func TestWeightsNormalized(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, l := range []Loss{&BinaryLoss{}, &MultinomialLoss{Classes: 4}} {
		dim := 1
		if m, ok := l.(*MultinomialLoss); ok {
			dim = m.Classes
		}
		weights, err := l.Weights(randomScores(r, 5, 7, dim))
		if err != nil {
			t.Fatal(err)
		}
		if len(weights) != 5 {
			t.Fatalf("expected 5 groups but got %d", len(weights))
		}
		for g, group := range weights {
			if len(group) != 7 {
				t.Fatalf("group %d: expected 7 weights but got %d", g, len(group))
			}
			var sum float64
			for _, w := range group {
				if w < 0 || !finite(w) {
					t.Fatalf("group %d: bad weight %f", g, w)
				}
				sum += w
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("group %d: weights sum to %f", g, sum)
			}
		}
	}
}

func TestBinaryWeightsProportional(t *testing.T) {
	scores := [][]linalg.Vector{{{-1}, {0.5}, {2}}}
	weights, err := (&BinaryLoss{}).Weights(scores)
	if err != nil {
		t.Fatal(err)
	}
	// Unclamped, log(d/(1-d)) is the score itself.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			expected := math.Exp(scores[0][i][0] - scores[0][j][0])
			actual := weights[0][i] / weights[0][j]
			if math.Abs(actual-expected) > 1e-9*expected {
				t.Errorf("ratio %d/%d: expected %f but got %f", i, j, expected, actual)
			}
		}
	}
}

func TestWeightsShiftInvariant(t *testing.T) {
	scores := [][]linalg.Vector{{{-0.3}, {1.2}, {0.1}, {2.5}}}
	shifted := [][]linalg.Vector{{{0.7}, {2.2}, {1.1}, {3.5}}}
	loss := &BinaryLoss{}
	w1, err := loss.Weights(scores)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := loss.Weights(shifted)
	if err != nil {
		t.Fatal(err)
	}
	for i := range w1[0] {
		if math.Abs(w1[0][i]-w2[0][i]) > 1e-9 {
			t.Errorf("weight %d: %f vs %f", i, w1[0][i], w2[0][i])
		}
	}
}

func TestWeightsDegenerateGroup(t *testing.T) {
	for _, score := range []float64{0, 1.5, 1000, -1000} {
		scores := [][]linalg.Vector{{{score}, {score}, {score}, {score}}}
		weights, err := (&BinaryLoss{}).Weights(scores)
		if err != nil {
			t.Fatal(err)
		}
		for i, w := range weights[0] {
			if w != 0.25 {
				t.Errorf("score %f: weight %d is %f", score, i, w)
			}
		}
	}
}

func TestWeightsClamped(t *testing.T) {
	scores := [][]linalg.Vector{{{1000}, {0}}}
	weights, err := (&BinaryLoss{}).Weights(scores)
	if err != nil {
		t.Fatal(err)
	}
	eps := DefaultEpsilon
	expected := (1 - eps) / eps
	actual := weights[0][0] / weights[0][1]
	if math.Abs(actual-expected) > 1e-6*expected {
		t.Errorf("expected clamped ratio %e but got %e", expected, actual)
	}
}

func TestWeightsNumericError(t *testing.T) {
	scores := [][]linalg.Vector{{{math.NaN()}, {0}}}
	_, err := (&BinaryLoss{}).Weights(scores)
	if !IsNumericError(err) {
		t.Fatalf("expected numeric error but got %v", err)
	}
}

func TestWeightsShapeErrors(t *testing.T) {
	cases := map[string][][]linalg.Vector{
		"ragged": {{{0}, {1}}, {{0}}},
		"dim":    {{{0, 1}, {1, 2}}},
		"empty":  {},
	}
	for name, scores := range cases {
		_, err := (&BinaryLoss{}).Weights(scores)
		if _, ok := errors.Cause(err).(*ShapeError); !ok {
			t.Errorf("%s: expected shape error but got %v", name, err)
		}
	}
}

func TestRenormalize(t *testing.T) {
	w := Renormalize([]float64{1, 3, 0, 4})
	expected := []float64{0.125, 0.375, 0, 0.5}
	for i, x := range expected {
		if math.Abs(w[i]-x) > 1e-12 {
			t.Errorf("entry %d: expected %f but got %f", i, x, w[i])
		}
	}
	again := Renormalize(w)
	for i := range w {
		if math.Abs(again[i]-w[i]) > 1e-15 {
			t.Errorf("entry %d changed from %v to %v", i, w[i], again[i])
		}
	}
	for i, x := range Renormalize([]float64{0, 0}) {
		if x != 0.5 {
			t.Errorf("zero weights: entry %d is %f", i, x)
		}
	}
}

func TestBinaryMatchesTwoClass(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	binScores := randomScores(r, 3, 4, 1)
	multiScores := make([][]linalg.Vector, len(binScores))
	for i, group := range binScores {
		for _, s := range group {
			multiScores[i] = append(multiScores[i], linalg.Vector{s[0], s[0]})
		}
	}
	binWeights, err := (&BinaryLoss{}).Weights(binScores)
	if err != nil {
		t.Fatal(err)
	}
	multiWeights, err := (&MultinomialLoss{Classes: 2}).Weights(multiScores)
	if err != nil {
		t.Fatal(err)
	}
	for i := range binWeights {
		for j := range binWeights[i] {
			if math.Abs(binWeights[i][j]-multiWeights[i][j]) > 1e-12 {
				t.Errorf("weight %d/%d: %f vs %f", i, j, binWeights[i][j], multiWeights[i][j])
			}
		}
	}

	var binReal, binFake, multiReal, multiFake []autofunc.Result
	for _, s := range binScores[0] {
		binReal = append(binReal, &autofunc.Variable{Vector: s})
		binFake = append(binFake, &autofunc.Variable{Vector: s.Copy().Scale(-1)})
	}
	for _, s := range multiScores[0] {
		multiReal = append(multiReal, &autofunc.Variable{Vector: s})
		multiFake = append(multiFake, &autofunc.Variable{Vector: s.Copy().Scale(-1)})
	}
	binLoss, err := (&BinaryLoss{}).DiscriminatorLoss(binReal, binFake)
	if err != nil {
		t.Fatal(err)
	}
	multiLoss, err := (&MultinomialLoss{Classes: 2}).DiscriminatorLoss(multiReal, multiFake)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(binLoss.Output()[0]-multiLoss.Output()[0]) > 1e-12 {
		t.Errorf("discriminator losses differ: %f vs %f", binLoss.Output()[0],
			multiLoss.Output()[0])
	}
}

func TestDiscriminatorLossValue(t *testing.T) {
	real := []autofunc.Result{&autofunc.Variable{Vector: linalg.Vector{0}}}
	fake := []autofunc.Result{&autofunc.Variable{Vector: linalg.Vector{0}}}
	loss, err := (&BinaryLoss{}).DiscriminatorLoss(real, fake)
	if err != nil {
		t.Fatal(err)
	}
	if expected := 2 * math.Log(2); math.Abs(loss.Output()[0]-expected) > 1e-9 {
		t.Errorf("expected %f but got %f", expected, loss.Output()[0])
	}

	_, err = (&MultinomialLoss{Classes: 3}).DiscriminatorLoss(real, fake)
	if _, ok := errors.Cause(err).(*ShapeError); !ok {
		t.Errorf("expected shape error but got %v", err)
	}
}

func TestDiscriminatorLossGradient(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	var vars []*autofunc.Variable
	var real, fake []autofunc.Result
	for i := 0; i < 4; i++ {
		rv := &autofunc.Variable{Vector: randomVector(r, 3)}
		fv := &autofunc.Variable{Vector: randomVector(r, 3)}
		vars = append(vars, rv, fv)
		real = append(real, rv)
		fake = append(fake, fv)
	}
	loss := &MultinomialLoss{Classes: 3}
	if _, err := loss.DiscriminatorLoss(real, fake); err != nil {
		t.Fatal(err)
	}
	checker := &functest.FuncChecker{
		F:     discLossFunc{loss: loss, real: real, fake: fake},
		Vars:  vars,
		Input: vars[0],
	}
	checker.FullCheck(t)
}

// discLossFunc evaluates a discriminator loss of fixed
// score results, ignoring its input.
type discLossFunc struct {
	loss Loss
	real []autofunc.Result
	fake []autofunc.Result
}

func (d discLossFunc) Apply(in autofunc.Result) autofunc.Result {
	res, err := d.loss.DiscriminatorLoss(d.real, d.fake)
	if err != nil {
		panic(err)
	}
	return res
}

func TestGeneratorLossStopsWeightGradient(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	scores := randomScores(r, 2, 3, 1)
	logProbVars := make([][]*autofunc.Variable, 2)
	logProbs := make([][]autofunc.Result, 2)
	var allVars []*autofunc.Variable
	for i := range logProbs {
		for j := 0; j < 3; j++ {
			v := &autofunc.Variable{Vector: linalg.Vector{-r.Float64() * 5}}
			logProbVars[i] = append(logProbVars[i], v)
			logProbs[i] = append(logProbs[i], v)
			allVars = append(allVars, v)
		}
	}
	loss := &BinaryLoss{}
	weights, err := loss.Weights(scores)
	if err != nil {
		t.Fatal(err)
	}
	res, err := loss.GeneratorLoss(logProbs, scores)
	if err != nil {
		t.Fatal(err)
	}

	var expected float64
	for i := range weights {
		for j, w := range weights[i] {
			expected -= w * logProbVars[i][j].Vector[0] / 2
		}
	}
	if math.Abs(res.Output()[0]-expected) > 1e-12 {
		t.Errorf("expected loss %f but got %f", expected, res.Output()[0])
	}

	// The weights act as constants: d(loss)/d(logProb) = -w/B.
	grad := autofunc.NewGradient(allVars)
	res.PropagateGradient(linalg.Vector{1}, grad)
	for i := range weights {
		for j, w := range weights[i] {
			actual := grad[logProbVars[i][j]][0]
			if math.Abs(actual+w/2) > 1e-12 {
				t.Errorf("log-prob %d/%d: expected gradient %f but got %f", i, j, -w/2, actual)
			}
		}
	}
	if len(grad) != len(allVars) {
		t.Errorf("gradient gained entries: %d", len(grad))
	}
}

func TestWeightedNegLogProbWeightGradient(t *testing.T) {
	// Weights only receive a gradient if a caller puts them
	// in the gradient map, which the loss never does.
	logProbs := [][]autofunc.Result{{&autofunc.Variable{Vector: linalg.Vector{-2}}}}
	weight := &autofunc.Variable{Vector: linalg.Vector{1}}
	res := weightedNegLogProb(logProbs, [][]*autofunc.Variable{{weight}})

	grad := autofunc.NewGradient(nil)
	res.PropagateGradient(linalg.Vector{1}, grad)
	if _, ok := grad[weight]; ok {
		t.Fatal("weight gained a gradient entry")
	}

	grad = autofunc.NewGradient([]*autofunc.Variable{weight})
	res.PropagateGradient(linalg.Vector{1}, grad)
	if g := grad[weight][0]; g != 2 {
		t.Errorf("expected weight gradient 2 but got %f", g)
	}
}

func TestGeneratorLossShapeErrors(t *testing.T) {
	scores := [][]linalg.Vector{{{0}, {1}}}
	logProbs := [][]autofunc.Result{{&autofunc.Variable{Vector: linalg.Vector{-1}}}}
	_, err := (&BinaryLoss{}).GeneratorLoss(logProbs, scores)
	if _, ok := errors.Cause(err).(*ShapeError); !ok {
		t.Errorf("expected shape error but got %v", err)
	}
	_, err = (&BinaryLoss{}).GeneratorLoss(nil, scores)
	if _, ok := errors.Cause(err).(*ShapeError); !ok {
		t.Errorf("expected shape error but got %v", err)
	}
}
