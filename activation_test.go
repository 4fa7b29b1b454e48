package bgan

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/autofunc/functest"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
)

func TestActivationGradients(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, act := range []Activation{ReLU, LeakyReLU, ELU} {
		t.Run(string(act), func(t *testing.T) {
			in := &autofunc.Variable{Vector: randomVector(r, 10)}
			for i, x := range in.Vector {
				// Keep away from the kink at 0.
				if math.Abs(x) < 0.01 {
					in.Vector[i] = 0.5
				}
			}
			vars := []*autofunc.Variable{in}
			checker := &functest.RFuncChecker{
				F:     act.Layer(),
				Vars:  vars,
				Input: in,
				RV:    randomRVector(r, vars),
			}
			checker.FullCheck(t)
		})
	}
}

func TestActivationValues(t *testing.T) {
	in := &autofunc.Variable{Vector: linalg.Vector{-2, 3}}
	if out := ReLU.Layer().Apply(in).Output(); out[0] != 0 || out[1] != 3 {
		t.Errorf("relu: %v", out)
	}
	out := LeakyReLU.Layer().Apply(in).Output()
	if math.Abs(out[0]+2*LeakySlope) > 1e-12 || math.Abs(out[1]-3) > 1e-12 {
		t.Errorf("leaky relu: %v", out)
	}
	out = ELU.Layer().Apply(in).Output()
	if math.Abs(out[0]-(math.Exp(-2)-1)) > 1e-12 || math.Abs(out[1]-3) > 1e-12 {
		t.Errorf("elu: %v", out)
	}
}

func TestActivationSerialize(t *testing.T) {
	for _, act := range []Activation{LeakyReLU, ELU} {
		data, err := serializer.SerializeAny(neuralnet.Network{act.Layer()})
		if err != nil {
			t.Fatal(err)
		}
		var decoded neuralnet.Network
		if err := serializer.DeserializeAny(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if len(decoded) != 1 {
			t.Fatalf("decoded %d layers", len(decoded))
		}
		switch l := decoded[0].(type) {
		case *LeakyReLULayer:
			if act != LeakyReLU || l.Slope != LeakySlope {
				t.Errorf("unexpected layer %+v for %s", l, act)
			}
		case *ELULayer:
			if act != ELU {
				t.Errorf("unexpected ELU layer for %s", act)
			}
		default:
			t.Errorf("decoded a %T for %s", l, act)
		}
	}
}

func TestParseActivation(t *testing.T) {
	if a, err := ParseActivation("elu"); err != nil || a != ELU {
		t.Errorf("unexpected result %v, %v", a, err)
	}
	_, err := ParseActivation("tanh")
	if _, ok := errors.Cause(err).(*ConfigError); !ok {
		t.Errorf("expected config error but got %v", err)
	}
}
