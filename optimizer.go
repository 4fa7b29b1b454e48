package bgan

import (
	"fmt"
	"math"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
)

// Adam holds the hyper-parameters of the Adam update rule.
// The moment estimates live in an AdamState so that they
// can be checkpointed with the rest of a TrainingState.
type Adam struct {
	StepSize float64
	Beta1    float64
	Beta2    float64
	Damping  float64
}

// NewAdam creates an Adam optimizer with the betas used
// for GAN training, (0.5, 0.999).
func NewAdam(stepSize float64) *Adam {
	return &Adam{
		StepSize: stepSize,
		Beta1:    0.5,
		Beta2:    0.999,
		Damping:  1e-8,
	}
}

// AdamState stores Adam's moment estimates, aligned with
// a parameter list.
type AdamState struct {
	Iteration int
	First     []linalg.Vector
	Second    []linalg.Vector
}

// NewAdamState creates zero moments for the parameters.
func NewAdamState(params []*autofunc.Variable) AdamState {
	res := AdamState{
		First:  make([]linalg.Vector, len(params)),
		Second: make([]linalg.Vector, len(params)),
	}
	for i, p := range params {
		res.First[i] = make(linalg.Vector, len(p.Vector))
		res.Second[i] = make(linalg.Vector, len(p.Vector))
	}
	return res
}

// Copy creates a deep copy of the state.
func (a AdamState) Copy() AdamState {
	res := AdamState{
		Iteration: a.Iteration,
		First:     make([]linalg.Vector, len(a.First)),
		Second:    make([]linalg.Vector, len(a.Second)),
	}
	for i, v := range a.First {
		res.First[i] = v.Copy()
	}
	for i, v := range a.Second {
		res.Second[i] = v.Copy()
	}
	return res
}

// Step descends the gradient g, updating the moments in s.
// Parameters absent from g are left alone.
func (a *Adam) Step(params []*autofunc.Variable, g autofunc.Gradient, s *AdamState) error {
	if len(s.First) != len(params) || len(s.Second) != len(params) {
		return &ShapeError{Context: "adam state", Expected: len(params), Actual: len(s.First)}
	}
	s.Iteration++
	firstCorrection := 1 - math.Pow(a.Beta1, float64(s.Iteration))
	secondCorrection := 1 - math.Pow(a.Beta2, float64(s.Iteration))
	for i, p := range params {
		grad, ok := g[p]
		if !ok {
			continue
		}
		first, second := s.First[i], s.Second[i]
		if len(first) != len(p.Vector) || len(grad) != len(p.Vector) {
			return &ShapeError{Context: fmt.Sprintf("adam parameter %d", i),
				Expected: len(p.Vector), Actual: len(first)}
		}
		for j, x := range grad {
			first[j] = a.Beta1*first[j] + (1-a.Beta1)*x
			second[j] = a.Beta2*second[j] + (1-a.Beta2)*x*x
			mHat := first[j] / firstCorrection
			vHat := second[j] / secondCorrection
			p.Vector[j] -= a.StepSize * mHat / (math.Sqrt(vHat) + a.Damping)
		}
	}
	return nil
}
