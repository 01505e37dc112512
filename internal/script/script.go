// Package script replays gesture scenarios against a headless wall. Loads
// resolve inline from synthetic images, so a scenario with a fixed seed is
// fully deterministic.
package script

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/loader"
	"github.com/san-kum/tilewall/internal/log"
	"github.com/san-kum/tilewall/internal/session"
)

// DefaultTile is the pixel size of one cell when a scenario gives no viewport.
const DefaultTile = 100

var ErrExpectation = errors.New("script: expectation failed")

type Scenario struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Seed          int64    `yaml:"seed"`
	Size          int      `yaml:"size"`
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
	Total         int      `yaml:"total"`
	Displayed     int      `yaml:"displayed"`
	BlankFraction *float64 `yaml:"blank_fraction"`
	ReleasePolicy string   `yaml:"release_policy"`
	FadeDuration  int      `yaml:"fade_duration"`
	FailIDs       []int    `yaml:"fail_ids"`
	Steps         []Step   `yaml:"steps"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Cell struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

type DragStep struct {
	From Cell `yaml:"from"`
	To   Cell `yaml:"to"`
}

type Viewport struct {
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Step holds one action and any number of expectations checked after it.
type Step struct {
	Down   *Point    `yaml:"down"`
	Move   *Point    `yaml:"move"`
	Up     *Point    `yaml:"up"`
	Tick   int       `yaml:"tick"`
	Click  *Cell     `yaml:"click"`
	Drag   *DragStep `yaml:"drag"`
	Resize *Viewport `yaml:"resize"`

	Expect          []Expect `yaml:"expect"`
	ExpectDisplayed *int     `yaml:"expect_displayed"`
}

// Expect checks one cell. Initial names the cell whose id at the start of
// the scenario must now be at Row/Col.
type Expect struct {
	Row     int    `yaml:"row"`
	Col     int    `yaml:"col"`
	State   string `yaml:"state"`
	Initial *Cell  `yaml:"initial"`
}

type Result struct {
	Steps     int
	Displayed int
	Stats     session.Stats
	IDs       []grid.ImageID
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Config overlays the scenario's settings on base.
func (sc *Scenario) Config(base *config.Config) *config.Config {
	cfg := base.Clone()
	cfg.Loader.Offline = true
	if sc.Seed != 0 {
		cfg.Seed = sc.Seed
	}
	if sc.Size > 0 {
		cfg.Grid.Size = sc.Size
	}
	if sc.Total > 0 {
		cfg.Catalog.Total = sc.Total
	}
	if sc.Displayed > 0 {
		cfg.Grid.DisplayedImages = sc.Displayed
	}
	if sc.BlankFraction != nil {
		cfg.Grid.BlankFraction = *sc.BlankFraction
	}
	if sc.ReleasePolicy != "" {
		cfg.Drag.ReleasePolicy = sc.ReleasePolicy
	}
	if sc.FadeDuration > 0 {
		cfg.Fade.Duration = sc.FadeDuration
	}
	if len(sc.FailIDs) > 0 {
		cfg.Loader.FailIDs = append([]int(nil), sc.FailIDs...)
	}
	return cfg
}

// Runner drives a session with inline loads.
type Runner struct {
	Session *session.Session
	queue   *loader.Queue
}

func NewRunner(cfg *config.Config, logger *log.Logger) (*Runner, error) {
	cat, err := catalog.NewTemplate(cfg.Catalog.URLTemplate, cfg.Catalog.Total)
	if err != nil {
		return nil, err
	}
	q := loader.NewQueue(loader.NewSynthetic(16, cfg.Loader.FailIDs...))
	deps := session.Deps{Catalog: cat, Loader: q, Log: logger}
	if cfg.Seed != 0 {
		deps.Rand = rand.New(rand.NewSource(cfg.Seed))
	}
	s, err := session.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Runner{Session: s, queue: q}, nil
}

// Settle delivers every queued load and verifies the session invariants.
func (r *Runner) Settle() error {
	r.queue.Drain(r.Session.Complete)
	return r.Session.Check()
}

// Center is the pixel center of a cell at the current tile size.
func (r *Runner) Center(c Cell) (float64, float64) {
	ts := r.Session.TileSize()
	return (float64(c.Col) + 0.5) * ts, (float64(c.Row) + 0.5) * ts
}

func (r *Runner) Click(c Cell) {
	x, y := r.Center(c)
	r.Session.PointerDown(x, y)
	r.Session.PointerUp(x, y)
}

func (r *Runner) Drag(from, to Cell) {
	x0, y0 := r.Center(from)
	x1, y1 := r.Center(to)
	r.Session.PointerDown(x0, y0)
	r.Session.PointerMove((x0+x1)/2, (y0+y1)/2)
	r.Session.PointerMove(x1, y1)
	r.Session.PointerUp(x1, y1)
}

func (r *Runner) Ticks(n int) {
	for i := 0; i < n; i++ {
		r.Session.Tick()
	}
}

func Run(sc *Scenario, base *config.Config, logger *log.Logger) (*Result, error) {
	cfg := sc.Config(base)
	r, err := NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}

	w, h := sc.Width, sc.Height
	if w <= 0 || h <= 0 {
		w = viewportSide(cfg)
		h = w
	}
	if err := r.Session.Resize(w, h); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := r.Settle(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	initial := r.Session.Grid().Cells()

	for i, step := range sc.Steps {
		if err := r.apply(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := r.Settle(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := r.verify(step, initial); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return &Result{
		Steps:     len(sc.Steps),
		Displayed: r.Session.Displayed().Len(),
		Stats:     r.Session.Stats(),
		IDs:       r.Session.Grid().IDs(),
	}, nil
}

// viewportSide picks a square viewport: DefaultTile per cell when N is
// pinned, otherwise the smallest width that yields the large grid.
func viewportSide(cfg *config.Config) int {
	if cfg.Grid.Size > 0 {
		return cfg.Grid.Size * DefaultTile
	}
	return cfg.Grid.SmallWidth
}

func (r *Runner) apply(step Step) error {
	s := r.Session
	switch {
	case step.Down != nil:
		s.PointerDown(step.Down.X, step.Down.Y)
	case step.Move != nil:
		s.PointerMove(step.Move.X, step.Move.Y)
	case step.Up != nil:
		s.PointerUp(step.Up.X, step.Up.Y)
	case step.Click != nil:
		if err := r.inBounds(*step.Click); err != nil {
			return err
		}
		r.Click(*step.Click)
	case step.Drag != nil:
		if err := r.inBounds(step.Drag.From); err != nil {
			return err
		}
		r.Drag(step.Drag.From, step.Drag.To)
	case step.Resize != nil:
		return s.Resize(step.Resize.W, step.Resize.H)
	}
	r.Ticks(step.Tick)
	return nil
}

func (r *Runner) inBounds(c Cell) error {
	if !r.Session.Grid().InBounds(grid.Pos{Row: c.Row, Col: c.Col}) {
		return fmt.Errorf("cell (%d,%d) outside %dx%d grid", c.Row, c.Col, r.Session.Grid().Size(), r.Session.Grid().Size())
	}
	return nil
}

func (r *Runner) verify(step Step, initial []grid.Cell) error {
	g := r.Session.Grid()
	n := g.Size()
	if step.ExpectDisplayed != nil && r.Session.Displayed().Len() != *step.ExpectDisplayed {
		return fmt.Errorf("%w: displayed %d, want %d", ErrExpectation, r.Session.Displayed().Len(), *step.ExpectDisplayed)
	}
	for _, e := range step.Expect {
		p := grid.Pos{Row: e.Row, Col: e.Col}
		if !g.InBounds(p) {
			return fmt.Errorf("%w: cell (%d,%d) outside grid", ErrExpectation, e.Row, e.Col)
		}
		c := g.At(p)
		if e.State != "" && c.State.String() != e.State {
			return fmt.Errorf("%w: cell (%d,%d) is %s, want %s", ErrExpectation, e.Row, e.Col, c.State.String(), e.State)
		}
		if e.Initial != nil {
			if len(initial) != n*n {
				return fmt.Errorf("%w: grid was resized since the start", ErrExpectation)
			}
			src := initial[e.Initial.Row*n+e.Initial.Col]
			if src.IsEmpty() != c.IsEmpty() || (!src.IsEmpty() && src.ID != c.ID) {
				return fmt.Errorf("%w: cell (%d,%d) does not hold the initial content of (%d,%d)",
					ErrExpectation, e.Row, e.Col, e.Initial.Row, e.Initial.Col)
			}
		}
	}
	return nil
}
