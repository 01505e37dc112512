// Package gui runs the wall in a desktop window with ebiten. The game loop
// ticks at the fade tick rate, so every Update advances the fade clock once.
package gui

import (
	"context"
	"fmt"
	"image/color"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/loader"
	"github.com/san-kum/tilewall/internal/log"
	"github.com/san-kum/tilewall/internal/render"
	"github.com/san-kum/tilewall/internal/session"
	"github.com/san-kum/tilewall/internal/snapshot"
)

var (
	colBg      = color.RGBA{255, 255, 255, 255}
	colPending = color.RGBA{236, 236, 236, 255}
	colGrid    = color.RGBA{220, 220, 220, 255}
)

type Game struct {
	session *session.Session
	results <-chan loader.Result
	store   *snapshot.Store
	log     *log.Logger
	in      input

	textures map[grid.ImageID]*ebiten.Image
	width    int
	height   int
	lastX    int
	lastY    int
	notice   string
}

func NewGame(s *session.Session, results <-chan loader.Result, store *snapshot.Store, logger *log.Logger) *Game {
	if logger == nil {
		logger = log.Discard()
	}
	return &Game{
		session:  s,
		results:  results,
		store:    store,
		log:      logger.Named("gui"),
		in:       ebitenInput{},
		textures: make(map[grid.ImageID]*ebiten.Image),
	}
}

func (g *Game) Update() error {
	g.drainResults()
	if err := g.handleKeys(); err != nil {
		return err
	}
	g.handlePointer()
	g.session.Tick()
	return nil
}

// drainResults applies every load result that already arrived.
func (g *Game) drainResults() {
	for {
		select {
		case res, ok := <-g.results:
			if !ok {
				g.results = nil
				return
			}
			g.session.Complete(res)
		default:
			return
		}
	}
}

func (g *Game) handlePointer() {
	x, y := g.in.Cursor()
	fx, fy := float64(x), float64(y)
	if g.in.JustPressed() {
		// only motion after the press turns it into a drag
		g.lastX, g.lastY = x, y
		g.session.PointerDown(fx, fy)
	}
	if x != g.lastX || y != g.lastY {
		g.session.PointerMove(fx, fy)
		g.lastX, g.lastY = x, y
	}
	if g.in.JustReleased() {
		g.session.PointerUp(fx, fy)
	}
}

func (g *Game) handleKeys() error {
	switch {
	case g.in.KeyJustPressed(ebiten.KeyQ), g.in.KeyJustPressed(ebiten.KeyEscape):
		return ebiten.Termination
	case g.in.KeyJustPressed(ebiten.KeyR):
		if err := g.session.Reset(); err != nil {
			g.notice = err.Error()
			return nil
		}
		g.textures = make(map[grid.ImageID]*ebiten.Image)
		g.notice = fmt.Sprintf("new wall (epoch %d)", g.session.Epoch())
	case g.in.KeyJustPressed(ebiten.KeyE):
		g.export()
	case g.in.KeyJustPressed(ebiten.KeyY):
		g.yank()
	}
	return nil
}

func (g *Game) export() {
	if g.store == nil {
		g.notice = "snapshots disabled"
		return
	}
	img := render.NewCompositor().Compose(g.session.Frame())
	if err := g.store.Init(); err != nil {
		g.notice = err.Error()
		return
	}
	meta, err := g.store.Save(img, snapshot.Describe(g.session))
	if err != nil {
		g.log.Errorf("export snapshot: %v", err)
		g.notice = "export failed"
		return
	}
	g.notice = "exported " + g.store.FramePath(meta.ID)
}

func (g *Game) yank() {
	p, ok := g.session.Hovered()
	if !ok {
		return
	}
	ref, ok := g.session.RefAt(p)
	if !ok {
		return
	}
	if err := clipboard.WriteAll(ref.String()); err != nil {
		g.notice = "clipboard: " + err.Error()
		return
	}
	g.notice = "copied " + ref.String()
}

func (g *Game) texture(t grid.Tile) *ebiten.Image {
	if img, ok := g.textures[t.ID]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(t.Image)
	g.textures[t.ID] = img
	return img
}

// prune drops textures of images no longer on the wall or in hand.
func (g *Game) prune(f session.Frame) {
	if len(g.textures) <= 2*len(f.Cells) {
		return
	}
	keep := make(map[grid.ImageID]bool, len(f.Cells)+1)
	for _, c := range f.Cells {
		if c.IsFilled() {
			keep[c.ID] = true
		}
	}
	if f.Dragging {
		keep[f.Held.ID] = true
	}
	for id, img := range g.textures {
		if !keep[id] {
			img.Deallocate()
			delete(g.textures, id)
		}
	}
}

func (g *Game) drawTile(screen *ebiten.Image, t grid.Tile, x, y, size, alpha float64) {
	img := g.texture(t)
	b := img.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size/float64(b.Dx()), size/float64(b.Dy()))
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleAlpha(float32(alpha / 255))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colBg)
	f := g.session.Frame()
	if f.Size == 0 {
		return
	}
	ts := f.TileSize
	for row := 0; row < f.Size; row++ {
		for col := 0; col < f.Size; col++ {
			p := grid.Pos{Row: row, Col: col}
			c, opacity := f.At(p)
			x, y := float64(col)*ts, float64(row)*ts
			switch {
			case c.IsFilled() && c.Image != nil:
				if opacity > 0 {
					g.drawTile(screen, c.Tile(), x, y, ts, opacity)
				}
			case c.IsPending():
				vector.DrawFilledRect(screen, float32(x)+1, float32(y)+1, float32(ts)-2, float32(ts)-2, colPending, false)
			default:
				vector.StrokeRect(screen, float32(x)+0.5, float32(y)+0.5, float32(ts)-1, float32(ts)-1, 1, colGrid, false)
			}
		}
	}
	if f.Dragging && f.Held.Image != nil {
		g.drawTile(screen, f.Held, f.PointerX-ts/2, f.PointerY-ts/2, ts, 255)
	}
	g.prune(f)

	if g.notice != "" {
		ebitenutil.DebugPrintAt(screen, g.notice, 4, g.height-16)
	}
}

// Layout keeps a 1:1 pixel mapping and resizes the wall with the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		if err := g.session.Resize(outsideWidth, outsideHeight); err != nil {
			g.log.Errorf("resize to %dx%d: %v", outsideWidth, outsideHeight, err)
			g.notice = err.Error()
		}
	}
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it closes.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	s, async, err := session.Build(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer async.Close()

	ebiten.SetWindowSize(800, 800)
	ebiten.SetWindowTitle("tilewall")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.Fade.TickRate)

	g := NewGame(s, async.Results(), snapshot.New(cfg.SnapshotDir), logger)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	return nil
}
