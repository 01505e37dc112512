package loader

import (
	"context"
	"errors"
	"image"
	"image/color"
	"time"

	"github.com/san-kum/tilewall/internal/grid"
)

var ErrSyntheticFailure = errors.New("loader: synthetic failure")

// Synthetic renders a deterministic gradient per image id. It stands in for
// the network when running offline.
type Synthetic struct {
	Size  int
	Delay time.Duration
	fail  map[grid.ImageID]bool
}

func NewSynthetic(size int, failIDs ...int) *Synthetic {
	if size <= 0 {
		size = 64
	}
	fail := make(map[grid.ImageID]bool, len(failIDs))
	for _, id := range failIDs {
		fail[grid.ImageID(id)] = true
	}
	return &Synthetic{Size: size, fail: fail}
}

func (s *Synthetic) Fetch(ctx context.Context, req Request) (image.Image, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail[req.ID] {
		return nil, &grid.LoadError{Ref: req.Ref.String(), Wrapped: ErrSyntheticFailure}
	}
	return Swatch(req.ID, s.Size), nil
}

// Swatch draws a diagonal two-color gradient derived from id.
func Swatch(id grid.ImageID, size int) *image.RGBA {
	a := Hue(id)
	b := Hue(id*7 + 3)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	span := 2 * (size - 1)
	if span == 0 {
		span = 1
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(span)
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(a.R, b.R, t),
				G: lerp(a.G, b.G, t),
				B: lerp(a.B, b.B, t),
				A: 255,
			})
		}
	}
	return img
}

// Hue maps an id onto a saturated color wheel position.
func Hue(id grid.ImageID) color.RGBA {
	h := float64((int(id)*47)%360) / 60
	x := 1 - abs(mod2(h)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	const lo, hi = 40, 230
	return color.RGBA{
		R: uint8(lo + r*(hi-lo)),
		G: uint8(lo + g*(hi-lo)),
		B: uint8(lo + b*(hi-lo)),
		A: 255,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func mod2(v float64) float64 {
	for v >= 2 {
		v -= 2
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
