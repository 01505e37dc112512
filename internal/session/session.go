// Package session owns the state of one tile wall: the grid, the displayed
// set, the fade animator and the drag controller. A Session is driven from a
// single event loop; pointer events, load results and clock ticks must never
// be delivered concurrently.
package session

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/fade"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/loader"
	"github.com/san-kum/tilewall/internal/log"
)

// Loader starts a fetch and later hands a loader.Result back to the event
// loop, which passes it to Session.Complete.
type Loader interface {
	Load(req loader.Request)
}

// Renderer is told to redraw after every mutation and every changing tick.
type Renderer interface {
	Invalidate()
}

type RendererFunc func()

func (f RendererFunc) Invalidate() { f() }

type Deps struct {
	Catalog  catalog.Catalog
	Loader   Loader
	Renderer Renderer
	Log      *log.Logger
	// Rand defaults to a source seeded from the config seed, or the clock.
	Rand *rand.Rand
}

type Stats struct {
	LoadsStarted   int
	LoadsSucceeded int
	LoadsFailed    int
	LoadsStale     int
	Fills          int
	Swaps          int
	Restores       int
	Discards       int
	Exhausted      int
	Redraws        int
}

type Session struct {
	cfg      *config.Config
	cat      catalog.Catalog
	loader   Loader
	renderer Renderer
	log      *log.Logger
	rng      *rand.Rand

	grid  *grid.Grid
	shown *grid.DisplayedSet
	fades *fade.Animator
	drag  DragState

	width, height int
	tileSize      float64
	pointerX      float64
	pointerY      float64

	epoch      uint64
	nextTicket uint64
	// fadeTickets marks click-to-fill loads, which fade in when they land.
	fadeTickets map[uint64]struct{}

	stats Stats
}

func New(cfg *config.Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Catalog == nil || deps.Loader == nil {
		return nil, fmt.Errorf("session: catalog and loader are required")
	}
	if cells := cfg.MaxCells(); cells > deps.Catalog.Total() {
		return nil, fmt.Errorf("%w: %d cells for %d images", grid.ErrCatalogExhausted, cells, deps.Catalog.Total())
	}

	s := &Session{
		cfg:         cfg,
		cat:         deps.Catalog,
		loader:      deps.Loader,
		renderer:    deps.Renderer,
		log:         deps.Log,
		rng:         deps.Rand,
		shown:       grid.NewDisplayedSet(),
		fadeTickets: make(map[uint64]struct{}),
	}
	if s.renderer == nil {
		s.renderer = RendererFunc(func() {})
	}
	if s.log == nil {
		s.log = log.Discard()
	}
	s.log = s.log.Named("session")
	if s.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
	return s, nil
}

// Initialize discards the current wall and lays out a fresh n×n grid. Every
// image slot reserves a distinct unused id and starts its load; the cell
// stays pending until the result arrives.
func (s *Session) Initialize(n int) error {
	plan, err := grid.Layout(s.rng, n, s.cfg.Grid.BlankFraction, s.cfg.Grid.DisplayedImages)
	if err != nil {
		return err
	}
	ids, err := grid.NewDisplayedSet().SampleDistinct(s.rng, s.cat.Total(), plan.Filled)
	if err != nil {
		return fmt.Errorf("initialize %dx%d: %w", n, n, err)
	}

	s.epoch++
	s.grid = grid.New(n)
	s.shown.Reset()
	s.fades = fade.New(n, s.cfg.Fade.Duration)
	s.drag = DragState{}
	s.fadeTickets = make(map[uint64]struct{})
	s.updateTileSize()

	for i, p := range plan.SlotPositions() {
		s.shown.Bind(ids[i])
		s.startLoad(p, ids[i])
	}
	s.log.Infof("initialized %dx%d grid: %d blank, %d image slots (epoch %d)",
		n, n, plan.Blank, plan.Filled, s.epoch)
	s.invalidate()
	return nil
}

// Reset reinitializes the wall at its current size.
func (s *Session) Reset() error {
	n := s.cfg.GridSizeFor(s.width)
	if s.grid != nil {
		n = s.grid.Size()
	}
	return s.Initialize(n)
}

// Resize records the viewport size. The first call initializes the grid;
// later calls reinitialize when the size rule yields a different N and
// reinit_on_resize is set.
func (s *Session) Resize(width, height int) error {
	s.width, s.height = width, height
	n := s.cfg.GridSizeFor(width)
	switch {
	case s.grid == nil:
		return s.Initialize(n)
	case n != s.grid.Size() && s.cfg.Grid.ReinitOnResize:
		s.log.Infof("viewport %dx%d needs a %dx%d grid, reinitializing", width, height, n, n)
		return s.Initialize(n)
	}
	s.updateTileSize()
	s.invalidate()
	return nil
}

func (s *Session) updateTileSize() {
	if s.grid == nil || s.width <= 0 || s.height <= 0 {
		s.tileSize = 0
		return
	}
	s.tileSize = float64(min(s.width, s.height)) / float64(s.grid.Size())
}

func (s *Session) startLoad(p grid.Pos, id grid.ImageID) uint64 {
	s.nextTicket++
	ticket := s.nextTicket
	s.grid.Set(p, grid.Pending(id, ticket))
	s.stats.LoadsStarted++
	s.loader.Load(loader.Request{
		Ticket: ticket,
		Epoch:  s.epoch,
		ID:     id,
		Ref:    s.cat.Resolve(id),
	})
	return ticket
}

// Complete applies a load result. Results from an earlier epoch, or whose
// pending cell no longer exists, are dropped. The pending marker is looked
// up by ticket because a drag may have moved it to another cell.
func (s *Session) Complete(res loader.Result) {
	if s.grid == nil || res.Epoch != s.epoch {
		s.stats.LoadsStale++
		s.log.Debugf("dropping result for %s from epoch %d", res.Ref, res.Epoch)
		return
	}
	_, fadeIn := s.fadeTickets[res.Ticket]
	delete(s.fadeTickets, res.Ticket)

	p, ok := s.grid.FindTicket(res.Ticket)
	if !ok {
		s.stats.LoadsStale++
		if _, held := s.grid.FindID(res.ID); !held && !s.holding(res.ID) {
			s.shown.Release(res.ID)
		}
		s.log.Debugf("no pending cell for ticket %d (%s)", res.Ticket, res.Ref)
		return
	}

	if res.Err != nil || res.Image == nil {
		s.stats.LoadsFailed++
		s.grid.Clear(p)
		s.shown.Release(res.ID)
		err := res.Err
		if err == nil {
			err = fmt.Errorf("empty image")
		}
		s.log.Errorf("failed to load image %s: %v", res.Ref, err)
		s.invalidate()
		return
	}

	s.stats.LoadsSucceeded++
	s.grid.Set(p, grid.Filled(grid.Tile{ID: res.ID, Image: res.Image}))
	if fadeIn {
		s.fades.FadeIn(p)
	} else {
		s.fades.Cancel(p)
	}
	s.invalidate()
}

// Tick advances the fade clock by one step. A completed fade-out clears its
// cell and releases the id.
func (s *Session) Tick() bool {
	if s.fades == nil {
		return false
	}
	changed, finished := s.fades.Tick()
	for _, f := range finished {
		if f.Dir != fade.Out {
			continue
		}
		if c := s.grid.At(f.Pos); c.IsFilled() {
			s.shown.Release(c.ID)
			s.grid.Clear(f.Pos)
		}
	}
	if changed {
		s.invalidate()
	}
	return changed
}

// Animating reports whether any fade timeline is running.
func (s *Session) Animating() bool {
	return s.fades != nil && s.fades.Active() > 0
}

func (s *Session) invalidate() {
	s.stats.Redraws++
	s.renderer.Invalidate()
}

// CellAt maps screen coordinates to a cell.
func (s *Session) CellAt(x, y float64) (grid.Pos, bool) {
	if s.grid == nil || s.tileSize <= 0 {
		return grid.Pos{}, false
	}
	p := grid.Pos{
		Row: int(math.Floor(y / s.tileSize)),
		Col: int(math.Floor(x / s.tileSize)),
	}
	return p, s.grid.InBounds(p)
}

// Hovered returns the cell under the last known pointer position.
func (s *Session) Hovered() (grid.Pos, bool) {
	return s.CellAt(s.pointerX, s.pointerY)
}

// RefAt returns the resource of the image shown or pending at p.
func (s *Session) RefAt(p grid.Pos) (catalog.Ref, bool) {
	c := s.grid.At(p)
	if !c.HoldsID() {
		return "", false
	}
	return s.cat.Resolve(c.ID), true
}

// Check verifies that no id is shown twice, that the displayed set matches
// the ids held by pending and filled cells, and that a held tile is in
// neither.
func (s *Session) Check() error {
	if s.grid == nil {
		return nil
	}
	ids := s.grid.IDs()
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return fmt.Errorf("%w: image %d shown twice", grid.ErrInvariant, ids[i])
		}
	}
	for _, id := range ids {
		if !s.shown.Has(id) {
			return fmt.Errorf("%w: image %d on grid but not in displayed set", grid.ErrInvariant, id)
		}
	}
	if len(ids) != s.shown.Len() {
		return fmt.Errorf("%w: displayed set has %d ids, grid holds %d", grid.ErrInvariant, s.shown.Len(), len(ids))
	}
	if s.drag.Phase != PhaseIdle {
		if s.shown.Has(s.drag.Held.ID) {
			return fmt.Errorf("%w: held image %d still in displayed set", grid.ErrInvariant, s.drag.Held.ID)
		}
		if !s.grid.At(s.drag.Origin).IsEmpty() {
			return fmt.Errorf("%w: origin %v refilled while holding", grid.ErrInvariant, s.drag.Origin)
		}
	}
	return nil
}

// Frame is what a render driver needs to paint one picture.
type Frame struct {
	Size     int
	TileSize float64
	Width    int
	Height   int
	// Cells and Opacity are row-major.
	Cells    []grid.Cell
	Opacity  []float64
	Dragging bool
	Held     grid.Tile
	PointerX float64
	PointerY float64
}

func (f Frame) At(p grid.Pos) (grid.Cell, float64) {
	i := p.Row*f.Size + p.Col
	return f.Cells[i], f.Opacity[i]
}

func (s *Session) Frame() Frame {
	if s.grid == nil {
		return Frame{Width: s.width, Height: s.height}
	}
	return Frame{
		Size:     s.grid.Size(),
		TileSize: s.tileSize,
		Width:    s.width,
		Height:   s.height,
		Cells:    s.grid.Cells(),
		Opacity:  s.fades.Snapshot(),
		Dragging: s.drag.Phase == PhaseDragging,
		Held:     s.drag.Held,
		PointerX: s.drag.X,
		PointerY: s.drag.Y,
	}
}

func (s *Session) Grid() *grid.Grid { return s.grid }
func (s *Session) Displayed() *grid.DisplayedSet { return s.shown }
func (s *Session) Fades() *fade.Animator { return s.fades }
func (s *Session) Catalog() catalog.Catalog { return s.cat }
func (s *Session) Config() *config.Config { return s.cfg }
func (s *Session) Drag() DragState { return s.drag }
func (s *Session) TileSize() float64 { return s.tileSize }
func (s *Session) Epoch() uint64 { return s.epoch }
func (s *Session) Stats() Stats { return s.stats }
func (s *Session) Viewport() (width, height int) { return s.width, s.height }
func (s *Session) PendingFades() int { return len(s.fadeTickets) }
