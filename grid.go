package bgan

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
)

// GridSpacing is the gap, in pixels, between grid cells.
const GridSpacing = 1

// GridSpaceColor fills the gaps between grid cells.
var GridSpaceColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// SampleGrid renders the expected output of the generator
// for every latent vector and arranges the images in a
// grid, filling rows first.
//
// It only evaluates the generator, so it neither tracks
// gradients nor consumes randomness.
func SampleGrid(gen neuralnet.Network, space OutputSpace, latents []linalg.Vector,
	width, height, cols int) (image.Image, error) {
	if width*height != space.Pixels {
		return nil, &ShapeError{Context: "sample image", Expected: space.Pixels,
			Actual: width * height}
	}
	if len(latents) == 0 || cols <= 0 {
		return image.NewRGBA(image.Rect(0, 0, GridSpacing, GridSpacing)), nil
	}
	rows := (len(latents) + cols - 1) / cols
	if len(latents) < cols {
		cols = len(latents)
	}

	tiles := make([][]float64, len(latents))
	for i, z := range latents {
		logits := gen.Apply(&autofunc.Variable{Vector: z}).Output()
		if len(logits) != space.SampleSize() {
			return nil, &ShapeError{Context: "generator output", Expected: space.SampleSize(),
				Actual: len(logits)}
		}
		tiles[i] = space.Expected(logits)
	}

	newWidth := width*cols + (cols+1)*GridSpacing
	newHeight := height*rows + (rows+1)*GridSpacing
	img := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		for x := 0; x < newWidth; x++ {
			img.Set(x, y, GridSpaceColor)
		}
	}

	for idx, tile := range tiles {
		tileY := GridSpacing + (idx/cols)*(height+GridSpacing)
		tileX := GridSpacing + (idx%cols)*(width+GridSpacing)
		for j := 0; j < height; j++ {
			for k := 0; k < width; k++ {
				img.Set(tileX+k, tileY+j, color.Gray{
					Y: uint8(tile[j*width+k]*0xff + 0.5),
				})
			}
		}
	}
	return img, nil
}

// A SampleWriter periodically saves a grid of generator
// outputs for a fixed batch of latent vectors.
type SampleWriter struct {
	Dir     string
	Latents []linalg.Vector
	Width   int
	Height  int
	Cols    int
}

// NewSampleWriter creates a SampleWriter with n latent
// vectors drawn from a source seeded with seed.
func NewSampleWriter(dir string, latentDim, n, width, height int, seed int64) *SampleWriter {
	r := rand.New(rand.NewSource(seed))
	latents := make([]linalg.Vector, n)
	for i := range latents {
		latents[i] = make(linalg.Vector, latentDim)
		for j := range latents[i] {
			latents[i][j] = r.NormFloat64()
		}
	}
	cols := 1
	for cols*cols < n {
		cols++
	}
	return &SampleWriter{
		Dir:     dir,
		Latents: latents,
		Width:   width,
		Height:  height,
		Cols:    cols,
	}
}

// Write renders the generator and saves it as a PNG named
// after the step.
func (s *SampleWriter) Write(gen neuralnet.Network, space OutputSpace, step int) (string, error) {
	img, err := SampleGrid(gen, space, s.Latents, s.Width, s.Height, s.Cols)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("sample-%07d.png", step))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "write sample")
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", errors.Wrap(err, "encode sample")
	}
	return path, nil
}
