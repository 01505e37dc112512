package grid

import (
	"fmt"
	"image"
	"sort"
)

// ImageID indexes an image in the catalog.
type ImageID int

// Tile pairs a decoded image with the id it was loaded for.
type Tile struct {
	ID    ImageID
	Image image.Image
}

type CellState int

const (
	StateEmpty CellState = iota
	StatePending
	StateFilled
)

func (s CellState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	case StateFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// Cell is the content of one grid position. A pending cell has reserved an
// id and is waiting for the load identified by Ticket.
type Cell struct {
	State  CellState
	ID     ImageID
	Ticket uint64
	Image  image.Image
}

func Empty() Cell { return Cell{} }

func Pending(id ImageID, ticket uint64) Cell {
	return Cell{State: StatePending, ID: id, Ticket: ticket}
}

func Filled(t Tile) Cell {
	return Cell{State: StateFilled, ID: t.ID, Image: t.Image}
}

func (c Cell) IsEmpty() bool   { return c.State == StateEmpty }
func (c Cell) IsPending() bool { return c.State == StatePending }
func (c Cell) IsFilled() bool  { return c.State == StateFilled }

// HoldsID reports whether the cell has an id reserved or displayed.
func (c Cell) HoldsID() bool { return c.State != StateEmpty }

func (c Cell) Tile() Tile { return Tile{ID: c.ID, Image: c.Image} }

func (c Cell) String() string {
	switch c.State {
	case StatePending:
		return fmt.Sprintf("pending(%d#%d)", c.ID, c.Ticket)
	case StateFilled:
		return fmt.Sprintf("filled(%d)", c.ID)
	default:
		return "empty"
	}
}

// Pos addresses a cell; 0 <= Row, Col < N.
type Pos struct {
	Row, Col int
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Grid is an N×N row-major array of cells. Accessors panic on positions
// outside the grid: an out-of-bounds access is a caller bug.
type Grid struct {
	n     int
	cells []Cell
}

func New(n int) *Grid {
	if n <= 0 {
		panic(ErrInvalidSize)
	}
	return &Grid{n: n, cells: make([]Cell, n*n)}
}

func (g *Grid) Size() int { return g.n }

func (g *Grid) InBounds(p Pos) bool {
	return p.Row >= 0 && p.Row < g.n && p.Col >= 0 && p.Col < g.n
}

func (g *Grid) index(p Pos) int {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("grid: position %v outside %dx%d grid", p, g.n, g.n))
	}
	return p.Row*g.n + p.Col
}

func (g *Grid) At(p Pos) Cell { return g.cells[g.index(p)] }

func (g *Grid) Set(p Pos, c Cell) { g.cells[g.index(p)] = c }

func (g *Grid) Clear(p Pos) { g.cells[g.index(p)] = Cell{} }

// Swap exchanges the contents of a and b.
func (g *Grid) Swap(a, b Pos) {
	i, j := g.index(a), g.index(b)
	g.cells[i], g.cells[j] = g.cells[j], g.cells[i]
}

// PosOf converts a row-major index into a position.
func (g *Grid) PosOf(i int) Pos { return Pos{Row: i / g.n, Col: i % g.n} }

func (g *Grid) Positions() []Pos {
	out := make([]Pos, len(g.cells))
	for i := range g.cells {
		out[i] = g.PosOf(i)
	}
	return out
}

// FindTicket locates the pending cell waiting on ticket.
func (g *Grid) FindTicket(ticket uint64) (Pos, bool) {
	for i, c := range g.cells {
		if c.IsPending() && c.Ticket == ticket {
			return g.PosOf(i), true
		}
	}
	return Pos{}, false
}

// FindID locates the cell holding id, pending or filled.
func (g *Grid) FindID(id ImageID) (Pos, bool) {
	for i, c := range g.cells {
		if c.HoldsID() && c.ID == id {
			return g.PosOf(i), true
		}
	}
	return Pos{}, false
}

// IDs returns the sorted ids held by pending and filled cells, duplicates
// included.
func (g *Grid) IDs() []ImageID {
	ids := make([]ImageID, 0, len(g.cells))
	for _, c := range g.cells {
		if c.HoldsID() {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of cells in state s.
func (g *Grid) Count(s CellState) int {
	n := 0
	for _, c := range g.cells {
		if c.State == s {
			n++
		}
	}
	return n
}

// Cells returns a copy of the cells in row-major order.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}
