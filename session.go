package bgan

import (
	"context"
	"log"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/bgan/datasets"
)

// A Session is a training run assembled from a Config.
type Session struct {
	Config  *Config
	Dirs    ResultDirs
	Dataset Dataset
	Model   *BGAN
	State   TrainingState
	Run     RunConfig
}

// NewSession validates the config, loads the dataset,
// builds both networks, and restores the checkpoint named
// by c.Resume if there is one.
func NewSession(c *Config) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dsConfig, err := datasets.Lookup(c.DatasetName)
	if err != nil {
		return nil, err
	}
	actName := c.Activation
	if actName == "" {
		actName = dsConfig.Activation
	}
	act, err := ParseActivation(actName)
	if err != nil {
		return nil, err
	}

	data, err := dsConfig.Factory(c.DataPath)
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	width, height := data.ImageSize()
	space := SpaceForColors(data.NumColors(), width*height)
	log.Printf("dataset=%s samples=%d size=%dx%d colors=%d", c.DatasetName, data.Len(),
		width, height, data.NumColors())

	dirs, err := c.CreateResultDirs()
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(c.Seed))
	gen := NewGenerator(c.LatentDim, space, dsConfig.GenHidden, act)
	disc := NewDiscriminator(space, dsConfig.DiscHidden, act)
	InitWeights(gen, r)
	InitWeights(disc, r)
	if c.SpectralNorm {
		if err := SpectralNorm(gen); err != nil {
			return nil, err
		}
		if err := SpectralNorm(disc); err != nil {
			return nil, err
		}
	}

	model := &BGAN{
		Generator:     gen,
		Discriminator: disc,
		GenOpt:        NewAdam(c.GenLR),
		DiscOpt:       NewAdam(c.DiscLR),
		Space:         space,
		Loss:          NewLoss(space),
		LatentDim:     c.LatentDim,
		MCSamples:     c.MCSamples,
		Rand:          r,
	}
	state := NewTrainingState(model)
	if c.Resume != "" {
		ckpt, err := LoadCheckpoint(c.Resume)
		if err != nil {
			return nil, err
		}
		state, err = model.Restore(ckpt)
		if err != nil {
			return nil, errors.Wrap(err, "resume")
		}
		log.Printf("resumed from %s at epoch=%d step=%d", c.Resume, state.Epoch, state.Step)
	}

	res := &Session{
		Config:  c,
		Dirs:    dirs,
		Dataset: data,
		Model:   model,
		State:   state,
		Run: RunConfig{
			Epochs: c.Epochs,
			Loader: LoaderOptions{
				BatchSize:  c.BatchSize,
				NumWorkers: c.NumWorkers,
				Shuffle:    rand.New(rand.NewSource(c.Seed + 1)),
			},
			LogEvery:        c.LogEvery,
			SampleEvery:     c.SampleEvery,
			CheckpointEvery: c.CheckpointEvery,
			CheckpointDir:   dirs.Checkpoints,
			OnNaN:           NumericPolicy(c.OnNaN),
		},
	}
	if c.NumSample > 0 {
		res.Run.Sampler = NewSampleWriter(dirs.Samples, c.LatentDim, c.NumSample, width,
			height, c.Seed+2)
	}
	return res, nil
}

// Train runs the session until it finishes or ctx is done.
// The session's State is updated either way.
func (s *Session) Train(ctx context.Context) error {
	state, err := Run(ctx, s.Run, s.Model, s.Dataset, s.State)
	s.State = state
	return err
}
