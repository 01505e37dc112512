package grid

import (
	"math"
	"math/rand"
)

// Plan is the blank/image slot assignment for a freshly initialized grid.
type Plan struct {
	Size int
	// Slots is row-major; true marks a cell that receives an image.
	Slots  []bool
	Blank  int
	Filled int
}

// Layout plans an n×n grid with floor(n²·blankFraction) cells blank by
// design and min(displayed, n²-blank) image slots. The remaining cells stay
// empty as well. The markers are shuffled with Fisher–Yates before being
// laid out row-major.
func Layout(rng *rand.Rand, n int, blankFraction float64, displayed int) (Plan, error) {
	if n <= 0 {
		return Plan{}, ErrInvalidSize
	}
	total := n * n
	blank := int(math.Floor(float64(total) * clamp01(blankFraction)))
	filled := displayed
	if filled > total-blank {
		filled = total - blank
	}
	if filled < 0 {
		filled = 0
	}

	slots := make([]bool, total)
	for i := blank; i < blank+filled; i++ {
		slots[i] = true
	}
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	return Plan{Size: n, Slots: slots, Blank: blank, Filled: filled}, nil
}

// SlotPositions returns the positions marked as image slots.
func (p Plan) SlotPositions() []Pos {
	out := make([]Pos, 0, p.Filled)
	for i, ok := range p.Slots {
		if ok {
			out = append(out, Pos{Row: i / p.Size, Col: i % p.Size})
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
