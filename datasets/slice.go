package datasets

import "github.com/unixpickle/sgd"

// A Slice is an in-memory Dataset.
// Each sample stores one color level per pixel.
type Slice struct {
	Samples [][]uint8
	Colors  int
	Width   int
	Height  int
}

// NewSlice creates a Slice from per-pixel levels.
func NewSlice(levels [][]int, colors, width, height int) *Slice {
	res := &Slice{
		Samples: make([][]uint8, len(levels)),
		Colors:  colors,
		Width:   width,
		Height:  height,
	}
	for i, l := range levels {
		res.Samples[i] = make([]uint8, len(l))
		for j, x := range l {
			res.Samples[i][j] = uint8(x)
		}
	}
	return res
}

func (s *Slice) Len() int {
	return len(s.Samples)
}

func (s *Slice) Swap(i, j int) {
	s.Samples[i], s.Samples[j] = s.Samples[j], s.Samples[i]
}

// GetSample returns the sample's levels as an []int.
func (s *Slice) GetSample(i int) interface{} {
	res := make([]int, len(s.Samples[i]))
	for j, x := range s.Samples[i] {
		res[j] = int(x)
	}
	return res
}

func (s *Slice) Copy() sgd.SampleSet {
	res := *s
	res.Samples = make([][]uint8, len(s.Samples))
	copy(res.Samples, s.Samples)
	return &res
}

func (s *Slice) Subset(start, end int) sgd.SampleSet {
	res := *s
	res.Samples = s.Samples[start:end]
	return &res
}

func (s *Slice) NumColors() int {
	return s.Colors
}

func (s *Slice) ImageSize() (width, height int) {
	return s.Width, s.Height
}
