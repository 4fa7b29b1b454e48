package bgan

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
)

func init() {
	var c Checkpoint
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCheckpoint)
}

// A Checkpoint is a snapshot of both networks and the
// training state, including optimizer moments.
type Checkpoint struct {
	State         TrainingState
	Generator     neuralnet.Network
	Discriminator neuralnet.Network
}

// DeserializeCheckpoint deserializes a Checkpoint.
func DeserializeCheckpoint(d []byte) (*Checkpoint, error) {
	res := &Checkpoint{}
	var epoch, step, genIter, discIter serializer.Int
	var genFirst, genSecond, discFirst, discSecond []serializer.Serializer
	err := serializer.DeserializeAny(d, &epoch, &step, &res.Generator, &res.Discriminator,
		&genIter, &genFirst, &genSecond, &discIter, &discFirst, &discSecond)
	if err != nil {
		return nil, err
	}
	res.State = TrainingState{
		Epoch:   int(epoch),
		Step:    int(step),
		GenOpt:  AdamState{Iteration: int(genIter)},
		DiscOpt: AdamState{Iteration: int(discIter)},
	}
	for _, x := range []struct {
		name string
		in   []serializer.Serializer
		out  *[]linalg.Vector
	}{
		{"generator first moment", genFirst, &res.State.GenOpt.First},
		{"generator second moment", genSecond, &res.State.GenOpt.Second},
		{"discriminator first moment", discFirst, &res.State.DiscOpt.First},
		{"discriminator second moment", discSecond, &res.State.DiscOpt.Second},
	} {
		*x.out, err = decodeMoments(x.in)
		if err != nil {
			return nil, errors.Wrap(err, x.name)
		}
	}
	return res, nil
}

// SerializerType returns the unique ID used to serialize
// a Checkpoint with the serializer package.
func (c *Checkpoint) SerializerType() string {
	return "github.com/unixpickle/bgan.Checkpoint"
}

// Serialize serializes the checkpoint.
func (c *Checkpoint) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(c.State.Epoch),
		serializer.Int(c.State.Step),
		c.Generator,
		c.Discriminator,
		serializer.Int(c.State.GenOpt.Iteration),
		encodeMoments(c.State.GenOpt.First),
		encodeMoments(c.State.GenOpt.Second),
		serializer.Int(c.State.DiscOpt.Iteration),
		encodeMoments(c.State.DiscOpt.First),
		encodeMoments(c.State.DiscOpt.Second),
	)
}

func encodeMoments(moments []linalg.Vector) []serializer.Serializer {
	res := make([]serializer.Serializer, len(moments))
	for i, m := range moments {
		res[i] = serializer.Float64Slice(m)
	}
	return res
}

func decodeMoments(list []serializer.Serializer) ([]linalg.Vector, error) {
	res := make([]linalg.Vector, len(list))
	for i, x := range list {
		vec, ok := x.(serializer.Float64Slice)
		if !ok {
			return nil, errors.Errorf("entry %d is %T, not []float64", i, x)
		}
		res[i] = linalg.Vector(vec)
	}
	return res, nil
}

// Checkpoint snapshots the networks with a state.
func (b *BGAN) Checkpoint(s TrainingState) *Checkpoint {
	return &Checkpoint{
		State:         s,
		Generator:     b.Generator,
		Discriminator: b.Discriminator,
	}
}

// Restore replaces the networks with the checkpoint's
// networks and returns its training state.
//
// The checkpoint must fit the model: its generator maps
// LatentDim inputs to the space's sample size, its
// discriminator maps samples to ScoreDim outputs, and the
// optimizer moments match the parameters they belong to.
// Otherwise a *ShapeError is returned and b is unchanged.
func (b *BGAN) Restore(c *Checkpoint) (TrainingState, error) {
	if err := checkNetwork("generator", c.Generator, b.LatentDim,
		b.Space.SampleSize()); err != nil {
		return TrainingState{}, err
	}
	if err := checkNetwork("discriminator", c.Discriminator, b.Space.SampleSize(),
		b.Space.ScoreDim()); err != nil {
		return TrainingState{}, err
	}
	for _, x := range []struct {
		name  string
		net   neuralnet.Network
		state AdamState
	}{
		{"generator", c.Generator, c.State.GenOpt},
		{"discriminator", c.Discriminator, c.State.DiscOpt},
	} {
		if err := checkMoments(x.name, x.net.Parameters(), x.state); err != nil {
			return TrainingState{}, err
		}
	}
	b.Generator = c.Generator
	b.Discriminator = c.Discriminator
	return c.State, nil
}

func checkNetwork(name string, n neuralnet.Network, in, out int) error {
	sizes := LayerSizes(n)
	if len(sizes) == 0 {
		return &ShapeError{Context: name + " dense layers", Expected: 1, Actual: 0}
	}
	if sizes[0] != in {
		return &ShapeError{Context: name + " input", Expected: in, Actual: sizes[0]}
	}
	if last := sizes[len(sizes)-1]; last != out {
		return &ShapeError{Context: name + " output", Expected: out, Actual: last}
	}
	return nil
}

func checkMoments(name string, params []*autofunc.Variable, s AdamState) error {
	for _, moments := range [][]linalg.Vector{s.First, s.Second} {
		if len(moments) != len(params) {
			return &ShapeError{Context: name + " optimizer state", Expected: len(params),
				Actual: len(moments)}
		}
		for i, p := range params {
			if len(moments[i]) != len(p.Vector) {
				return &ShapeError{Context: fmt.Sprintf("%s optimizer moment %d", name, i),
					Expected: len(p.Vector), Actual: len(moments[i])}
			}
		}
	}
	return nil
}

// CheckpointPath is the file name used for the checkpoint
// taken after an epoch.
func CheckpointPath(dir string, epoch int) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint-%04d.bgan", epoch))
}

// SaveCheckpoint writes a checkpoint to a new file.
// Existing checkpoints are never overwritten.
func SaveCheckpoint(path string, c *Checkpoint) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("save checkpoint: %s already exists", path)
	}
	data, err := c.Serialize()
	if err != nil {
		return errors.Wrap(err, "save checkpoint")
	}
	tmpPath := path + ".tmp"
	if err := ioutil.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, "save checkpoint")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "save checkpoint")
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by
// SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load checkpoint")
	}
	res, err := DeserializeCheckpoint(data)
	if err != nil {
		return nil, errors.Wrap(err, "load checkpoint")
	}
	return res, nil
}
