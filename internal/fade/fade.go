package fade

import (
	"time"

	"github.com/san-kum/tilewall/internal/grid"
)

const (
	Opaque          = 255.0
	DefaultDuration = 60
	DefaultRate     = 60
)

// Period returns the wall-clock interval between ticks at rate ticks/s.
func Period(rate int) time.Duration {
	if rate <= 0 {
		rate = DefaultRate
	}
	return time.Second / time.Duration(rate)
}

type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// Timeline is one running fade on one cell.
type Timeline struct {
	Dir     Direction
	Elapsed int
}

// Finished reports a timeline that completed during a tick.
type Finished struct {
	Pos grid.Pos
	Dir Direction
}

// Animator owns the per-cell opacity table and at most one timeline per
// cell. Opacity lives independently of the grid contents: a cell keeps
// fading out after its tile was logically discarded.
type Animator struct {
	n         int
	duration  int
	opacity   []float64
	timelines map[grid.Pos]*Timeline
}

func New(n, duration int) *Animator {
	if duration <= 0 {
		duration = DefaultDuration
	}
	a := &Animator{
		n:         n,
		duration:  duration,
		opacity:   make([]float64, n*n),
		timelines: make(map[grid.Pos]*Timeline),
	}
	for i := range a.opacity {
		a.opacity[i] = Opaque
	}
	return a
}

func (a *Animator) Duration() int { return a.duration }

func (a *Animator) index(p grid.Pos) int {
	if p.Row < 0 || p.Row >= a.n || p.Col < 0 || p.Col >= a.n {
		panic("fade: position outside opacity map")
	}
	return p.Row*a.n + p.Col
}

// FadeIn starts p at opacity 0, replacing any running timeline on p.
func (a *Animator) FadeIn(p grid.Pos) {
	a.opacity[a.index(p)] = 0
	a.timelines[p] = &Timeline{Dir: In}
}

// FadeOut starts p at full opacity, replacing any running timeline on p.
func (a *Animator) FadeOut(p grid.Pos) {
	a.opacity[a.index(p)] = Opaque
	a.timelines[p] = &Timeline{Dir: Out}
}

// Cancel stops any timeline on p and restores full opacity.
func (a *Animator) Cancel(p grid.Pos) bool {
	a.opacity[a.index(p)] = Opaque
	if _, ok := a.timelines[p]; !ok {
		return false
	}
	delete(a.timelines, p)
	return true
}

func (a *Animator) Running(p grid.Pos) (Timeline, bool) {
	tl, ok := a.timelines[p]
	if !ok {
		return Timeline{}, false
	}
	return *tl, true
}

func (a *Animator) Active() int { return len(a.timelines) }

func (a *Animator) Opacity(p grid.Pos) float64 { return a.opacity[a.index(p)] }

// Snapshot copies the opacity map row-major.
func (a *Animator) Snapshot() []float64 {
	out := make([]float64, len(a.opacity))
	copy(out, a.opacity)
	return out
}

// Tick advances every timeline by one step. A fade-out that completes is
// reported so the owner can clear the cell; its opacity is already reset.
func (a *Animator) Tick() (changed bool, finished []Finished) {
	for p, tl := range a.timelines {
		tl.Elapsed++
		i := a.index(p)
		step := Opaque * float64(tl.Elapsed) / float64(a.duration)
		done := tl.Elapsed >= a.duration

		switch tl.Dir {
		case In:
			a.opacity[i] = step
			if done {
				a.opacity[i] = Opaque
			}
		case Out:
			a.opacity[i] = Opaque - step
			if done {
				a.opacity[i] = Opaque
			}
		}
		changed = true

		if done {
			delete(a.timelines, p)
			finished = append(finished, Finished{Pos: p, Dir: tl.Dir})
		}
	}
	return changed, finished
}
