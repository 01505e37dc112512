package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/session"
)

var Background = color.RGBA{255, 255, 255, 255}

type scaledKey struct {
	id   grid.ImageID
	w, h int
}

// Compositor paints frames into RGBA images. Scaled tiles are cached for the
// current tile size.
type Compositor struct {
	Background color.Color
	Scaler     xdraw.Scaler

	tileSize float64
	scaled   map[scaledKey]*image.RGBA
}

func NewCompositor() *Compositor {
	return &Compositor{
		Background: Background,
		Scaler:     xdraw.ApproxBiLinear,
		scaled:     make(map[scaledKey]*image.RGBA),
	}
}

// Bounds returns the canvas a frame is painted on: the viewport when known,
// otherwise just the grid.
func Bounds(f session.Frame) image.Rectangle {
	side := int(math.Ceil(f.TileSize * float64(f.Size)))
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		w, h = side, side
	}
	return image.Rect(0, 0, w, h)
}

// CellRect is the pixel rectangle of p, aligned so adjacent cells share edges.
func CellRect(tileSize float64, p grid.Pos) image.Rectangle {
	return image.Rect(
		int(float64(p.Col)*tileSize),
		int(float64(p.Row)*tileSize),
		int(float64(p.Col+1)*tileSize),
		int(float64(p.Row+1)*tileSize),
	)
}

func (c *Compositor) Compose(f session.Frame) *image.RGBA {
	dst := image.NewRGBA(Bounds(f))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c.Background), image.Point{}, xdraw.Src)
	if f.Size == 0 || f.TileSize <= 0 {
		return dst
	}
	if f.TileSize != c.tileSize {
		c.tileSize = f.TileSize
		c.scaled = make(map[scaledKey]*image.RGBA)
	}

	for row := 0; row < f.Size; row++ {
		for col := 0; col < f.Size; col++ {
			p := grid.Pos{Row: row, Col: col}
			cell, opacity := f.At(p)
			if !cell.IsFilled() || cell.Image == nil {
				continue
			}
			c.paint(dst, CellRect(f.TileSize, p), cell.Tile(), opacity)
		}
	}

	if f.Dragging && f.Held.Image != nil {
		half := f.TileSize / 2
		r := image.Rect(0, 0, int(f.TileSize), int(f.TileSize)).
			Add(image.Pt(int(f.PointerX-half), int(f.PointerY-half)))
		c.paint(dst, r, f.Held, 255)
	}
	return dst
}

func (c *Compositor) paint(dst *image.RGBA, r image.Rectangle, t grid.Tile, opacity float64) {
	if r.Empty() || opacity <= 0 {
		return
	}
	src := c.scale(t, r.Dx(), r.Dy())
	if opacity >= 255 {
		xdraw.Draw(dst, r, src, image.Point{}, xdraw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity)})
	xdraw.DrawMask(dst, r, src, image.Point{}, mask, image.Point{}, xdraw.Over)
}

func (c *Compositor) scale(t grid.Tile, w, h int) *image.RGBA {
	key := scaledKey{id: t.ID, w: w, h: h}
	if img, ok := c.scaled[key]; ok {
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c.Scaler.Scale(img, img.Bounds(), t.Image, t.Image.Bounds(), xdraw.Src, nil)
	c.scaled[key] = img
	return img
}

// Forget drops cached scalings of id, e.g. after it left the wall.
func (c *Compositor) Forget(id grid.ImageID) {
	for k := range c.scaled {
		if k.id == id {
			delete(c.scaled, k)
		}
	}
}

func (c *Compositor) Cached() int { return len(c.scaled) }
