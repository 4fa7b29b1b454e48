package bgan

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
)

// An OutputSpace describes the discrete distribution a
// generator emits for every pixel.
//
// If Classes is 1, each pixel is a Bernoulli variable and
// a sample is a vector of 0s and 1s with one entry per
// pixel.
// Otherwise, each pixel is a categorical variable over
// Classes colors and a sample is a pixel-major list of
// one-hot vectors.
type OutputSpace struct {
	Classes int
	Pixels  int
}

// SpaceForColors picks the binary space for datasets with
// at most two colors and the multinomial space otherwise.
func SpaceForColors(numColors, pixels int) OutputSpace {
	if numColors <= 2 {
		return OutputSpace{Classes: 1, Pixels: pixels}
	}
	return OutputSpace{Classes: numColors, Pixels: pixels}
}

// Binary returns true for the Bernoulli space.
func (o OutputSpace) Binary() bool {
	return o.Classes <= 1
}

// Dim is the number of values stored per pixel.
func (o OutputSpace) Dim() int {
	if o.Binary() {
		return 1
	}
	return o.Classes
}

// NumColors is the number of distinct pixel values.
func (o OutputSpace) NumColors() int {
	if o.Binary() {
		return 2
	}
	return o.Classes
}

// SampleSize is the length of a sample vector and of the
// generator's logit vector.
func (o OutputSpace) SampleSize() int {
	return o.Dim() * o.Pixels
}

// ScoreDim is the length of a discriminator score vector.
func (o OutputSpace) ScoreDim() int {
	return o.Dim()
}

// Encode converts per-pixel color levels into a sample.
func (o OutputSpace) Encode(levels []int) (linalg.Vector, error) {
	if len(levels) != o.Pixels {
		return nil, &ShapeError{Context: "encode", Expected: o.Pixels, Actual: len(levels)}
	}
	res := make(linalg.Vector, o.SampleSize())
	for i, level := range levels {
		if level < 0 || level >= o.NumColors() {
			return nil, errors.Errorf("pixel %d: level %d out of range [0, %d)", i, level,
				o.NumColors())
		}
		if o.Binary() {
			res[i] = float64(level)
		} else {
			res[i*o.Classes+level] = 1
		}
	}
	return res, nil
}

// Decode converts a sample back into color levels.
func (o OutputSpace) Decode(sample linalg.Vector) []int {
	res := make([]int, o.Pixels)
	for i := range res {
		if o.Binary() {
			if sample[i] > 0.5 {
				res[i] = 1
			}
		} else {
			res[i] = argMax(sample[i*o.Classes : (i+1)*o.Classes])
		}
	}
	return res
}

// Sample draws a sample from the distribution described
// by a generator's logits.
func (o OutputSpace) Sample(logits linalg.Vector, r *rand.Rand) linalg.Vector {
	res := make(linalg.Vector, o.SampleSize())
	probs := o.Probs(logits)
	if o.Binary() {
		for i, p := range probs {
			if r.Float64() < p {
				res[i] = 1
			}
		}
		return res
	}
	for p := 0; p < o.Pixels; p++ {
		pixel := probs[p*o.Classes : (p+1)*o.Classes]
		res[p*o.Classes+chooseRandom(pixel, r)] = 1
	}
	return res
}

// Probs turns logits into probabilities: one sigmoid per
// pixel for a binary space, or one softmax per pixel.
func (o OutputSpace) Probs(logits linalg.Vector) linalg.Vector {
	in := &autofunc.Variable{Vector: logits}
	if o.Binary() {
		return autofunc.Sigmoid{}.Apply(in).Output()
	}
	res := make(linalg.Vector, 0, len(logits))
	for p := 0; p < o.Pixels; p++ {
		pixel := autofunc.Slice(in, p*o.Classes, (p+1)*o.Classes)
		logSoftmax := (&neuralnet.LogSoftmaxLayer{}).Apply(pixel)
		res = append(res, autofunc.Exp{}.Apply(logSoftmax).Output()...)
	}
	return res
}

// LogProb computes the differentiable log-likelihood of a
// sample under the distribution given by logits.
//
// The sample itself is a constant.
func (o OutputSpace) LogProb(logits autofunc.Result, sample linalg.Vector) autofunc.Result {
	if len(logits.Output()) != o.SampleSize() || len(sample) != o.SampleSize() {
		panic("logits and sample must match the output space")
	}
	if o.Binary() {
		return autofunc.Scale(neuralnet.SigmoidCECost{}.Cost(sample, logits), -1)
	}
	return autofunc.Pool(logits, func(logits autofunc.Result) autofunc.Result {
		var sum autofunc.Result
		for p := 0; p < o.Pixels; p++ {
			pixel := autofunc.Slice(logits, p*o.Classes, (p+1)*o.Classes)
			logSoftmax := (&neuralnet.LogSoftmaxLayer{}).Apply(pixel)
			choice := argMax(sample[p*o.Classes : (p+1)*o.Classes])
			term := autofunc.Slice(logSoftmax, choice, choice+1)
			if sum == nil {
				sum = term
			} else {
				sum = autofunc.Add(sum, term)
			}
		}
		return sum
	})
}

// Expected computes the mean intensity of every pixel in
// [0, 1], where color level k has intensity k/(colors-1).
func (o OutputSpace) Expected(logits linalg.Vector) []float64 {
	probs := o.Probs(logits)
	if o.Binary() {
		return probs
	}
	res := make([]float64, o.Pixels)
	for p := range res {
		for k, prob := range probs[p*o.Classes : (p+1)*o.Classes] {
			res[p] += prob * float64(k) / float64(o.Classes-1)
		}
	}
	return res
}

func chooseRandom(probs []float64, r *rand.Rand) int {
	n := r.Float64()
	for i, x := range probs {
		n -= x
		if n < 0 {
			return i
		}
	}
	return len(probs) - 1
}

func argMax(v []float64) int {
	var idx int
	for i, x := range v {
		if x > v[idx] {
			idx = i
		}
	}
	return idx
}
