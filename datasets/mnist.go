package datasets

import "github.com/unixpickle/mnist"

const (
	mnistSize      = 28
	mnistThreshold = 0.5
)

// LoadMNIST loads the MNIST training images thresholded to
// two colors.
// The images are bundled with the mnist package, so root
// is not used.
func LoadMNIST(root string) (Dataset, error) {
	data := mnist.LoadTrainingDataSet()
	intensities := make([][]float64, len(data.Samples))
	for i, s := range data.Samples {
		intensities[i] = s.Intensities
	}
	return Binarize(intensities, mnistThreshold, mnistSize, mnistSize), nil
}

// Binarize maps intensities in [0, 1] to level 1 if they
// reach the threshold and level 0 otherwise.
func Binarize(intensities [][]float64, threshold float64, width, height int) *Slice {
	res := &Slice{
		Samples: make([][]uint8, len(intensities)),
		Colors:  2,
		Width:   width,
		Height:  height,
	}
	for i, img := range intensities {
		levels := make([]uint8, len(img))
		for j, x := range img {
			if x >= threshold {
				levels[j] = 1
			}
		}
		res.Samples[i] = levels
	}
	return res
}
