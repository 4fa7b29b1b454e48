package datasets

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	celebASize   = 32
	celebAColors = 4
)

// LoadCelebA loads every JPEG and PNG under root/celeba,
// center-cropped to a square, downsampled to 32x32 gray,
// and quantized to four levels.
func LoadCelebA(root string) (Dataset, error) {
	dir := filepath.Join(root, "celeba")
	paths, err := discoverImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("load celeba: no images under %s", dir)
	}
	res := &Slice{
		Samples: make([][]uint8, len(paths)),
		Colors:  celebAColors,
		Width:   celebASize,
		Height:  celebASize,
	}
	for i, path := range paths {
		img, err := decodeImage(path)
		if err != nil {
			return nil, errors.Wrap(err, "load celeba")
		}
		res.Samples[i] = Quantize(img, celebASize, celebAColors)
	}
	return res, nil
}

func discoverImages(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover images")
	}
	sort.Strings(paths)
	return paths, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// Quantize center-crops img to a square, box-filters it
// down to size x size gray pixels, and maps each pixel to
// one of levels evenly spaced levels.
func Quantize(img image.Image, size, levels int) []uint8 {
	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	minX := bounds.Min.X + (bounds.Dx()-side)/2
	minY := bounds.Min.Y + (bounds.Dy()-side)/2

	res := make([]uint8, size*size)
	for y := 0; y < size; y++ {
		y0, y1 := minY+y*side/size, minY+(y+1)*side/size
		if y1 == y0 {
			y1++
		}
		for x := 0; x < size; x++ {
			x0, x1 := minX+x*side/size, minX+(x+1)*side/size
			if x1 == x0 {
				x1++
			}
			var sum float64
			for py := y0; py < y1; py++ {
				for px := x0; px < x1; px++ {
					r, g, b, _ := img.At(px, py).RGBA()
					sum += (float64(r) + float64(g) + float64(b)) / (3 * 0xffff)
				}
			}
			gray := sum / float64((y1-y0)*(x1-x0))
			level := int(gray * float64(levels))
			if level >= levels {
				level = levels - 1
			}
			res[y*size+x] = uint8(level)
		}
	}
	return res
}
