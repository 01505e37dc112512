package script

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/log"
)

type SoakResult struct {
	Gestures         int
	DisplayedHistory []float64
	EmptyHistory     []float64
	Result
}

// Soak plays random clicks, drags and idle ticks, checking the session
// invariants after each gesture. The histories record the displayed and
// empty cell counts after every gesture.
func Soak(cfg *config.Config, gestures int, logger *log.Logger) (*SoakResult, error) {
	cfg = cfg.Clone()
	cfg.Loader.Offline = true
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
		cfg.Seed = seed
	}
	rng := rand.New(rand.NewSource(seed + 1))

	r, err := NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	side := viewportSide(cfg)
	if err := r.Session.Resize(side, side); err != nil {
		return nil, err
	}
	if err := r.Settle(); err != nil {
		return nil, err
	}

	out := &SoakResult{
		DisplayedHistory: make([]float64, 0, gestures),
		EmptyHistory:     make([]float64, 0, gestures),
	}
	for i := 0; i < gestures; i++ {
		size := r.Session.Grid().Size()
		pick := func() Cell { return Cell{Row: rng.Intn(size), Col: rng.Intn(size)} }
		switch rng.Intn(4) {
		case 0:
			r.Click(pick())
		case 1, 2:
			r.Drag(pick(), pick())
		default:
			x := rng.Float64() * float64(size+2) * DefaultTile
			y := rng.Float64() * float64(size+2) * DefaultTile
			r.Session.PointerDown(r.Center(pick()))
			r.Session.PointerMove(x, y)
			r.Session.PointerUp(x, y)
		}
		r.Ticks(rng.Intn(cfg.Fade.Duration + 1))
		if err := r.Settle(); err != nil {
			return nil, fmt.Errorf("gesture %d: %w", i+1, err)
		}
		out.DisplayedHistory = append(out.DisplayedHistory, float64(r.Session.Displayed().Len()))
		out.EmptyHistory = append(out.EmptyHistory, float64(r.Session.Grid().Count(grid.StateEmpty)))
	}

	out.Gestures = gestures
	out.Result = Result{
		Steps:     gestures,
		Displayed: r.Session.Displayed().Len(),
		Stats:     r.Session.Stats(),
		IDs:       r.Session.Grid().IDs(),
	}
	return out, nil
}
