package bgan

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/bgan/datasets"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
)

func randomVector(r *rand.Rand, n int) linalg.Vector {
	res := make(linalg.Vector, n)
	for i := range res {
		res[i] = r.NormFloat64()
	}
	return res
}

func randomRVector(r *rand.Rand, vars []*autofunc.Variable) autofunc.RVector {
	res := autofunc.RVector{}
	for _, v := range vars {
		res[v] = randomVector(r, len(v.Vector))
	}
	return res
}

func copyParams(n neuralnet.Network) []linalg.Vector {
	var res []linalg.Vector
	for _, p := range n.Parameters() {
		res = append(res, p.Vector.Copy())
	}
	return res
}

func paramsEqual(n neuralnet.Network, old []linalg.Vector) bool {
	for i, p := range n.Parameters() {
		for j, x := range p.Vector {
			if x != old[i][j] {
				return false
			}
		}
	}
	return true
}

// newToyBGAN creates a small model for the space with
// randomly initialized networks.
func newToyBGAN(space OutputSpace, seed int64) *BGAN {
	r := rand.New(rand.NewSource(seed))
	gen := NewGenerator(3, space, []int{8}, LeakyReLU)
	disc := NewDiscriminator(space, []int{8}, LeakyReLU)
	for _, n := range []neuralnet.Network{gen, disc} {
		for _, l := range DenseLayers(n) {
			for i := range l.Weights.Data.Vector {
				l.Weights.Data.Vector[i] = r.NormFloat64() * 0.5
			}
		}
	}
	return &BGAN{
		Generator:     gen,
		Discriminator: disc,
		GenOpt:        NewAdam(1e-2),
		DiscOpt:       NewAdam(1e-2),
		Space:         space,
		Loss:          NewLoss(space),
		LatentDim:     3,
		MCSamples:     3,
		Rand:          r,
	}
}

// toyDataset creates n images of the given size whose
// pixels cycle through the colors.
func toyDataset(n, colors, width, height int) *datasets.Slice {
	levels := make([][]int, n)
	for i := range levels {
		levels[i] = make([]int, width*height)
		for j := range levels[i] {
			levels[i][j] = (i + j) % colors
		}
	}
	return datasets.NewSlice(levels, colors, width, height)
}

func toyBatch(t *testing.T, space OutputSpace, data *datasets.Slice, start, end int) *Batch {
	t.Helper()
	res := &Batch{Space: space}
	for i := start; i < end; i++ {
		vec, err := space.Encode(data.GetSample(i).([]int))
		if err != nil {
			t.Fatal(err)
		}
		res.Samples = append(res.Samples, vec)
	}
	return res
}
