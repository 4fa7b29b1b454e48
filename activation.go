package bgan

import (
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
)

func init() {
	var l LeakyReLULayer
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLeakyReLULayer)
	var e ELULayer
	serializer.RegisterDeserializer(e.SerializerType(),
		func(d []byte) (serializer.Serializer, error) {
			return &ELULayer{}, nil
		})
}

// An Activation names the nonlinearity used between dense
// layers.
type Activation string

const (
	ReLU      Activation = "relu"
	LeakyReLU Activation = "leaky_relu"
	ELU       Activation = "elu"
)

// LeakySlope is the negative-side slope of LeakyReLU.
const LeakySlope = 0.2

// ParseActivation validates an activation name.
func ParseActivation(name string) (Activation, error) {
	switch a := Activation(name); a {
	case ReLU, LeakyReLU, ELU:
		return a, nil
	}
	return "", &ConfigError{Field: "activation", Value: name,
		Msg: "expected relu, leaky_relu, or elu"}
}

// Layer creates a layer computing the activation.
func (a Activation) Layer() neuralnet.Layer {
	switch a {
	case LeakyReLU:
		return &LeakyReLULayer{Slope: LeakySlope}
	case ELU:
		return &ELULayer{}
	default:
		return &neuralnet.ReLU{}
	}
}

// LeakyReLULayer computes max(x, Slope*x) for a Slope
// between 0 and 1.
type LeakyReLULayer struct {
	Slope float64
}

// DeserializeLeakyReLULayer deserializes a LeakyReLULayer.
func DeserializeLeakyReLULayer(d []byte) (*LeakyReLULayer, error) {
	slope, err := serializer.DeserializeFloat64(d)
	if err != nil {
		return nil, err
	}
	return &LeakyReLULayer{Slope: float64(slope)}, nil
}

// Apply applies the layer.
//
// The result is Slope*x + (1-Slope)*relu(x).
func (l *LeakyReLULayer) Apply(in autofunc.Result) autofunc.Result {
	return autofunc.Pool(in, func(x autofunc.Result) autofunc.Result {
		return autofunc.Add(
			autofunc.Scale(x, l.Slope),
			autofunc.Scale(neuralnet.ReLU{}.Apply(x), 1-l.Slope),
		)
	})
}

// ApplyR is like Apply, but for RResults.
func (l *LeakyReLULayer) ApplyR(v autofunc.RVector, in autofunc.RResult) autofunc.RResult {
	return autofunc.PoolR(in, func(x autofunc.RResult) autofunc.RResult {
		return autofunc.AddR(
			autofunc.ScaleR(x, l.Slope),
			autofunc.ScaleR(neuralnet.ReLU{}.ApplyR(v, x), 1-l.Slope),
		)
	})
}

// Batch applies the layer to a batch of concatenated
// inputs.
func (l *LeakyReLULayer) Batch(in autofunc.Result, n int) autofunc.Result {
	return l.Apply(in)
}

// BatchR is like Batch, but for RResults.
func (l *LeakyReLULayer) BatchR(v autofunc.RVector, in autofunc.RResult,
	n int) autofunc.RResult {
	return l.ApplyR(v, in)
}

// SerializerType returns the unique ID used to serialize
// a LeakyReLULayer with the serializer package.
func (l *LeakyReLULayer) SerializerType() string {
	return "github.com/unixpickle/bgan.LeakyReLULayer"
}

// Serialize serializes the layer.
func (l *LeakyReLULayer) Serialize() ([]byte, error) {
	return serializer.Float64(l.Slope).Serialize()
}

// ELULayer computes x for x > 0 and exp(x)-1 otherwise.
type ELULayer struct{}

// Apply applies the layer.
//
// The result is relu(x) + exp(-relu(-x)) - 1.
func (e *ELULayer) Apply(in autofunc.Result) autofunc.Result {
	return autofunc.Pool(in, func(x autofunc.Result) autofunc.Result {
		negPart := autofunc.Scale(neuralnet.ReLU{}.Apply(autofunc.Scale(x, -1)), -1)
		expPart := autofunc.AddScaler(autofunc.Exp{}.Apply(negPart), -1)
		return autofunc.Add(neuralnet.ReLU{}.Apply(x), expPart)
	})
}

// ApplyR is like Apply, but for RResults.
func (e *ELULayer) ApplyR(v autofunc.RVector, in autofunc.RResult) autofunc.RResult {
	return autofunc.PoolR(in, func(x autofunc.RResult) autofunc.RResult {
		negPart := autofunc.ScaleR(neuralnet.ReLU{}.ApplyR(v, autofunc.ScaleR(x, -1)), -1)
		expPart := autofunc.AddScalerR(autofunc.Exp{}.ApplyR(v, negPart), -1)
		return autofunc.AddR(neuralnet.ReLU{}.ApplyR(v, x), expPart)
	})
}

// Batch applies the layer to a batch of concatenated
// inputs.
func (e *ELULayer) Batch(in autofunc.Result, n int) autofunc.Result {
	return e.Apply(in)
}

// BatchR is like Batch, but for RResults.
func (e *ELULayer) BatchR(v autofunc.RVector, in autofunc.RResult, n int) autofunc.RResult {
	return e.ApplyR(v, in)
}

// SerializerType returns the unique ID used to serialize
// an ELULayer with the serializer package.
func (e *ELULayer) SerializerType() string {
	return "github.com/unixpickle/bgan.ELULayer"
}

// Serialize serializes the layer.
func (e *ELULayer) Serialize() ([]byte, error) {
	return []byte{}, nil
}
