// Package datasets provides the image datasets a BGAN can
// be trained on.
package datasets

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/unixpickle/sgd"
)

// A Dataset is a set of images whose pixels take one of
// NumColors levels.
// GetSample returns an []int of levels in row-major order.
type Dataset interface {
	sgd.SampleSet

	NumColors() int
	ImageSize() (width, height int)
}

// A Config describes how to load a dataset and the
// networks that suit it.
type Config struct {
	Name string

	// Factory loads the dataset from a data root.
	Factory func(root string) (Dataset, error)

	GenHidden  []int
	DiscHidden []int
	Activation string
}

var configs = map[string]Config{
	"disc_mnist": {
		Name:       "disc_mnist",
		Factory:    LoadMNIST,
		GenHidden:  []int{256, 512},
		DiscHidden: []int{512, 256},
		Activation: "relu",
	},
	"disc_celeba": {
		Name:       "disc_celeba",
		Factory:    LoadCelebA,
		GenHidden:  []int{512, 1024},
		DiscHidden: []int{1024, 512},
		Activation: "leaky_relu",
	},
}

// Lookup finds the config for a dataset name.
func Lookup(name string) (Config, error) {
	c, ok := configs[name]
	if !ok {
		return Config{}, errors.Errorf("unknown dataset %q (options: %v)", name, Names())
	}
	return c, nil
}

// Names returns the known dataset names, sorted.
func Names() []string {
	var res []string
	for name := range configs {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
