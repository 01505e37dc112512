package session

import (
	"errors"

	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/grid"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHolding
	PhaseDragging
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHolding:
		return "holding"
	case PhaseDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// DragState is the tile in hand. Held and Origin are meaningful only outside
// PhaseIdle; X and Y track the pointer while a tile is held.
type DragState struct {
	Phase  Phase
	Held   grid.Tile
	Origin grid.Pos
	X, Y   float64
}

func (s *Session) holding(id grid.ImageID) bool {
	return s.drag.Phase != PhaseIdle && s.drag.Held.ID == id
}

// PointerDown picks up the tile under the pointer, or asks for a new image
// when the cell is empty. Pending cells ignore the press.
func (s *Session) PointerDown(x, y float64) {
	s.pointerX, s.pointerY = x, y
	if s.drag.Phase != PhaseIdle {
		return
	}
	p, ok := s.CellAt(x, y)
	if !ok {
		return
	}

	c := s.grid.At(p)
	switch c.State {
	case grid.StateFilled:
		s.fades.Cancel(p)
		s.shown.Release(c.ID)
		s.grid.Clear(p)
		s.drag = DragState{Phase: PhaseHolding, Held: c.Tile(), Origin: p, X: x, Y: y}
		s.log.Debugf("picked up image %d at %v", c.ID, p)
		s.invalidate()
	case grid.StateEmpty:
		s.fill(p)
	}
}

// fill reserves an image nobody is looking at and loads it into p.
func (s *Session) fill(p grid.Pos) {
	id, err := s.shown.SampleUnused(s.rng, s.cat.Total())
	if err != nil {
		if errors.Is(err, grid.ErrCatalogExhausted) {
			s.stats.Exhausted++
		}
		s.log.Warnf("cannot fill %v: %v", p, err)
		return
	}
	ticket := s.startLoad(p, id)
	s.fadeTickets[ticket] = struct{}{}
	s.stats.Fills++
	s.log.Debugf("filling %v with image %d (ticket %d)", p, id, ticket)
	s.invalidate()
}

// PointerMove turns a hold into a drag; any movement counts.
func (s *Session) PointerMove(x, y float64) {
	s.pointerX, s.pointerY = x, y
	switch s.drag.Phase {
	case PhaseHolding:
		s.drag.Phase = PhaseDragging
		fallthrough
	case PhaseDragging:
		s.drag.X, s.drag.Y = x, y
		s.invalidate()
	}
}

// PointerUp drops the held tile. After a drag the tile swaps with whatever
// the target cell holds, or returns to its origin when released outside the
// grid. A plain click follows the configured release policy.
func (s *Session) PointerUp(x, y float64) {
	s.pointerX, s.pointerY = x, y
	held, origin := s.drag.Held, s.drag.Origin

	switch s.drag.Phase {
	case PhaseIdle:
		return
	case PhaseDragging:
		if target, ok := s.CellAt(x, y); ok {
			s.fades.Cancel(origin)
			s.fades.Cancel(target)
			s.grid.Set(origin, s.grid.At(target))
			s.grid.Set(target, grid.Filled(held))
			s.stats.Swaps++
			s.log.Debugf("dropped image %d on %v (from %v)", held.ID, target, origin)
		} else {
			s.grid.Set(origin, grid.Filled(held))
			s.stats.Restores++
			s.log.Debugf("dropped image %d outside the grid, restored to %v", held.ID, origin)
		}
	case PhaseHolding:
		s.grid.Set(origin, grid.Filled(held))
		if s.cfg.Drag.ReleasePolicy == config.ReleaseDiscard {
			s.fades.FadeOut(origin)
			s.stats.Discards++
		} else {
			s.stats.Restores++
		}
	}

	s.shown.Bind(held.ID)
	s.drag = DragState{}
	s.invalidate()
}
