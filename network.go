package bgan

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/weakai/neuralnet"
	"gonum.org/v1/gonum/mat"
)

// InitStddev is the standard deviation used by InitWeights.
const InitStddev = 0.02

// NewMLP creates a stack of dense layers with the given
// sizes, starting with the input size and ending with the
// output size.
// The activation sits between consecutive dense layers,
// so the network outputs logits.
func NewMLP(sizes []int, act Activation) neuralnet.Network {
	if len(sizes) < 2 {
		panic("an MLP needs an input and an output size")
	}
	var res neuralnet.Network
	for i := 1; i < len(sizes); i++ {
		if i > 1 {
			res = append(res, act.Layer())
		}
		res = append(res, neuralnet.NewDenseLayer(sizes[i-1], sizes[i]))
	}
	return res
}

// NewGenerator creates a generator producing logits for
// the output space.
func NewGenerator(latentDim int, space OutputSpace, hidden []int,
	act Activation) neuralnet.Network {
	sizes := append([]int{latentDim}, hidden...)
	return NewMLP(append(sizes, space.SampleSize()), act)
}

// NewDiscriminator creates a discriminator producing one
// score per output dimension.
func NewDiscriminator(space OutputSpace, hidden []int, act Activation) neuralnet.Network {
	sizes := append([]int{space.SampleSize()}, hidden...)
	return NewMLP(append(sizes, space.ScoreDim()), act)
}

// DenseLayers returns the dense layers of a network, in
// order.
func DenseLayers(n neuralnet.Network) []*neuralnet.DenseLayer {
	var res []*neuralnet.DenseLayer
	for _, l := range n {
		if d, ok := l.(*neuralnet.DenseLayer); ok {
			res = append(res, d)
		}
	}
	return res
}

// LayerSizes returns the input size of the first dense
// layer followed by the output size of every dense layer.
// It returns nil for a network without dense layers.
func LayerSizes(n neuralnet.Network) []int {
	layers := DenseLayers(n)
	if len(layers) == 0 {
		return nil
	}
	res := []int{layers[0].InputCount}
	for _, l := range layers {
		res = append(res, l.OutputCount)
	}
	return res
}

// InitWeights draws every dense weight from
// N(0, InitStddev^2) and zeros every bias.
func InitWeights(n neuralnet.Network, r *rand.Rand) {
	for _, l := range DenseLayers(n) {
		for i := range l.Weights.Data.Vector {
			l.Weights.Data.Vector[i] = r.NormFloat64() * InitStddev
		}
		l.Biases.Var.Vector.Scale(0)
	}
}

// SpectralNorm divides every dense weight matrix by its
// largest singular value.
// It is applied once, before training.
func SpectralNorm(n neuralnet.Network) error {
	for i, l := range DenseLayers(n) {
		w := mat.NewDense(l.OutputCount, l.InputCount,
			append([]float64{}, l.Weights.Data.Vector...))
		var svd mat.SVD
		if !svd.Factorize(w, mat.SVDNone) {
			return errors.Errorf("spectral norm: SVD of layer %d failed", i)
		}
		if sigma := svd.Values(nil)[0]; sigma > 0 {
			l.Weights.Data.Vector.Scale(1 / sigma)
		}
	}
	return nil
}
