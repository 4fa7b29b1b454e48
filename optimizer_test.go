package bgan

import (
	"math"
	"testing"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
)

func TestAdamFirstStep(t *testing.T) {
	p := &autofunc.Variable{Vector: linalg.Vector{1, 2, 3}}
	skipped := &autofunc.Variable{Vector: linalg.Vector{5}}
	params := []*autofunc.Variable{p, skipped}
	state := NewAdamState(params)

	grad := autofunc.Gradient{p: linalg.Vector{0.5, -2, 0}}
	adam := NewAdam(0.1)
	if err := adam.Step(params, grad, &state); err != nil {
		t.Fatal(err)
	}
	// After one step the bias-corrected update is
	// -stepSize * g / (|g| + damping).
	expected := linalg.Vector{0.9, 2.1, 3}
	for i, x := range expected {
		if math.Abs(p.Vector[i]-x) > 1e-6 {
			t.Errorf("entry %d: expected %f but got %f", i, x, p.Vector[i])
		}
	}
	if skipped.Vector[0] != 5 {
		t.Errorf("parameter missing from the gradient changed to %f", skipped.Vector[0])
	}
	if state.Iteration != 1 {
		t.Errorf("expected iteration 1 but got %d", state.Iteration)
	}
	if math.Abs(state.First[0][0]-0.25) > 1e-12 || math.Abs(state.Second[0][1]-0.004) > 1e-12 {
		t.Errorf("unexpected moments %v %v", state.First[0], state.Second[0])
	}
}

func TestAdamStateMismatch(t *testing.T) {
	p := &autofunc.Variable{Vector: linalg.Vector{1}}
	state := NewAdamState(nil)
	err := NewAdam(0.1).Step([]*autofunc.Variable{p}, autofunc.Gradient{}, &state)
	if _, ok := err.(*ShapeError); !ok {
		t.Errorf("expected shape error but got %v", err)
	}
}

func TestAdamStateCopy(t *testing.T) {
	p := &autofunc.Variable{Vector: linalg.Vector{1, 2}}
	state := NewAdamState([]*autofunc.Variable{p})
	state.First[0][0] = 3
	c := state.Copy()
	c.First[0][0] = 4
	if state.First[0][0] != 3 {
		t.Error("copy shares memory with the original")
	}
}
