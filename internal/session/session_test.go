package session_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/fade"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/loader"
	"github.com/san-kum/tilewall/internal/session"
)

const tile = 10.0

type memCatalog struct{ total int }

func (c memCatalog) Resolve(id grid.ImageID) catalog.Ref {
	return catalog.Ref(fmt.Sprintf("mem://tile%d", id))
}

func (c memCatalog) Total() int { return c.total }

// switchSource succeeds until fail is set.
type switchSource struct{ fail bool }

func (s *switchSource) Fetch(_ context.Context, req loader.Request) (image.Image, error) {
	if s.fail {
		return nil, &grid.LoadError{Ref: req.Ref.String(), Wrapped: errors.New("boom")}
	}
	return loader.Swatch(req.ID, 2), nil
}

type harness struct {
	s       *session.Session
	queue   *loader.Queue
	source  *switchSource
	redraws int
}

func newHarness(total int, mutate func(*config.Config)) *harness {
	cfg := config.DefaultConfig()
	cfg.Catalog.Total = total
	cfg.Grid.Size = 2
	cfg.Grid.BlankFraction = 0
	cfg.Grid.DisplayedImages = 4
	cfg.Seed = 7
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{source: &switchSource{}}
	h.queue = loader.NewQueue(h.source)
	s, err := session.New(cfg, session.Deps{
		Catalog:  memCatalog{total: total},
		Loader:   h.queue,
		Renderer: session.RendererFunc(func() { h.redraws++ }),
		Rand:     rand.New(rand.NewSource(cfg.Seed)),
	})
	Expect(err).NotTo(HaveOccurred())
	h.s = s
	return h
}

func (h *harness) start() {
	n := h.s.Config().GridSizeFor(0)
	Expect(h.s.Resize(int(tile)*n, int(tile)*n)).To(Succeed())
}

func (h *harness) drain() { h.queue.Drain(h.s.Complete) }

func (h *harness) cell(row, col int) grid.Cell {
	return h.s.Grid().At(grid.Pos{Row: row, Col: col})
}

func center(row, col int) (float64, float64) {
	return float64(col)*tile + tile/2, float64(row)*tile + tile/2
}

func (h *harness) click(row, col int) {
	x, y := center(row, col)
	h.s.PointerDown(x, y)
	h.s.PointerUp(x, y)
}

func (h *harness) drag(fromRow, fromCol int, toX, toY float64) {
	x, y := center(fromRow, fromCol)
	h.s.PointerDown(x, y)
	h.s.PointerMove(x+1, y+1)
	h.s.PointerMove(toX, toY)
	h.s.PointerUp(toX, toY)
}

func (h *harness) emptyCell() grid.Pos {
	for _, p := range h.s.Grid().Positions() {
		if h.s.Grid().At(p).IsEmpty() {
			return p
		}
	}
	Fail("no empty cell")
	return grid.Pos{}
}

var _ = Describe("Session", func() {
	Describe("initialization", func() {
		It("binds every catalog id on a full 2x2 wall", func() {
			h := newHarness(4, nil)
			h.start()

			Expect(h.s.Grid().Count(grid.StatePending)).To(Equal(4))
			Expect(h.s.Displayed().IDs()).To(ConsistOf(grid.ImageID(0), grid.ImageID(1), grid.ImageID(2), grid.ImageID(3)))

			h.drain()
			Expect(h.s.Grid().Count(grid.StateFilled)).To(Equal(4))
			Expect(h.s.Grid().Count(grid.StateEmpty)).To(BeZero())
			Expect(h.s.Check()).To(Succeed())
		})

		It("plans blank cells and image slots from the configuration", func() {
			h := newHarness(216, func(c *config.Config) {
				c.Grid.Size = 4
				c.Grid.BlankFraction = 0.2
				c.Grid.DisplayedImages = 20
			})
			h.start()
			h.drain()

			Expect(h.s.Grid().Count(grid.StateFilled)).To(Equal(13))
			Expect(h.s.Grid().Count(grid.StateEmpty)).To(Equal(3))
			Expect(h.s.Displayed().Len()).To(Equal(13))
			Expect(h.s.Check()).To(Succeed())
		})

		It("refuses a grid that needs more images than the catalog has", func() {
			cfg := config.DefaultConfig()
			cfg.Catalog.Total = 3
			cfg.Grid.Size = 2
			_, err := session.New(cfg, session.Deps{Catalog: memCatalog{total: 3}, Loader: loader.NewQueue(&switchSource{})})
			Expect(err).To(HaveOccurred())

			cfg.Catalog.Total = 216
			_, err = session.New(cfg, session.Deps{Catalog: memCatalog{total: 3}, Loader: loader.NewQueue(&switchSource{})})
			Expect(err).To(MatchError(grid.ErrCatalogExhausted))
		})

		It("ignores presses on cells that are still loading", func() {
			h := newHarness(4, nil)
			h.start()
			before := h.s.Grid().Cells()

			x, y := center(0, 0)
			h.s.PointerDown(x, y)

			Expect(h.s.Drag().Phase).To(Equal(session.PhaseIdle))
			Expect(h.s.Grid().Cells()).To(Equal(before))
		})
	})

	Describe("dragging", func() {
		var h *harness

		BeforeEach(func() {
			h = newHarness(4, nil)
			h.start()
			h.drain()
		})

		It("swaps the dragged tile with the target tile", func() {
			a, b, c, d := h.cell(0, 0), h.cell(0, 1), h.cell(1, 0), h.cell(1, 1)
			x, y := center(1, 1)
			h.drag(0, 0, x, y)

			Expect(h.cell(0, 0).ID).To(Equal(d.ID))
			Expect(h.cell(1, 1).ID).To(Equal(a.ID))
			Expect(h.cell(0, 1)).To(Equal(b))
			Expect(h.cell(1, 0)).To(Equal(c))
			Expect(h.s.Displayed().Len()).To(Equal(4))
			Expect(h.s.Stats().Swaps).To(Equal(1))
			Expect(h.s.Check()).To(Succeed())
		})

		It("walks through holding and dragging", func() {
			x, y := center(0, 1)
			held := h.cell(0, 1).ID

			h.s.PointerDown(x, y)
			Expect(h.s.Drag().Phase).To(Equal(session.PhaseHolding))
			Expect(h.cell(0, 1).IsEmpty()).To(BeTrue())
			Expect(h.s.Displayed().Has(held)).To(BeFalse())
			Expect(h.s.Check()).To(Succeed())

			h.s.PointerMove(x+3, y)
			Expect(h.s.Drag().Phase).To(Equal(session.PhaseDragging))
			frame := h.s.Frame()
			Expect(frame.Dragging).To(BeTrue())
			Expect(frame.Held.ID).To(Equal(held))
			Expect(frame.PointerX).To(Equal(x + 3))

			h.s.PointerUp(x+3, y)
			Expect(h.s.Drag().Phase).To(Equal(session.PhaseIdle))
			Expect(h.s.Displayed().Has(held)).To(BeTrue())
		})

		It("restores the tile when dropped outside the grid", func() {
			before := h.s.Grid().Cells()
			h.drag(0, 0, -5, 50)

			Expect(h.s.Grid().Cells()).To(Equal(before))
			Expect(h.s.Stats().Restores).To(Equal(1))
			Expect(h.s.Check()).To(Succeed())
		})

		It("restores a clicked tile by default", func() {
			before := h.cell(1, 0)
			h.click(1, 0)

			Expect(h.cell(1, 0)).To(Equal(before))
			Expect(h.s.Animating()).To(BeFalse())
			Expect(h.s.Displayed().Len()).To(Equal(4))
		})

		It("treats pointer up while idle as a no-op", func() {
			redraws := h.redraws
			h.s.PointerUp(5, 5)
			h.s.PointerMove(7, 7)
			Expect(h.redraws).To(Equal(redraws))
		})
	})

	Describe("discard release policy", func() {
		It("fades a clicked tile out and frees its id", func() {
			h := newHarness(4, func(c *config.Config) {
				c.Drag.ReleasePolicy = config.ReleaseDiscard
			})
			h.start()
			h.drain()
			id := h.cell(0, 0).ID

			h.click(0, 0)
			Expect(h.cell(0, 0).IsFilled()).To(BeTrue())
			Expect(h.s.Animating()).To(BeTrue())

			for i := 0; i < fade.DefaultDuration-1; i++ {
				h.s.Tick()
			}
			Expect(h.cell(0, 0).IsFilled()).To(BeTrue())
			Expect(h.s.Fades().Opacity(grid.Pos{})).To(BeNumerically("<", fade.Opaque))

			h.s.Tick()
			Expect(h.cell(0, 0).IsEmpty()).To(BeTrue())
			Expect(h.s.Fades().Opacity(grid.Pos{})).To(Equal(fade.Opaque))
			Expect(h.s.Displayed().Has(id)).To(BeFalse())
			Expect(h.s.Stats().Discards).To(Equal(1))
			Expect(h.s.Check()).To(Succeed())
		})
	})

	Describe("click to fill", func() {
		var h *harness

		BeforeEach(func() {
			h = newHarness(4, func(c *config.Config) { c.Grid.DisplayedImages = 3 })
			h.start()
			h.drain()
		})

		It("loads an unused image and fades it in", func() {
			p := h.emptyCell()
			used := h.s.Displayed().IDs()
			h.click(p.Row, p.Col)

			Expect(h.s.Grid().At(p).IsPending()).To(BeTrue())
			Expect(used).NotTo(ContainElement(h.s.Grid().At(p).ID))

			h.drain()
			Expect(h.s.Grid().At(p).IsFilled()).To(BeTrue())
			Expect(h.s.Fades().Opacity(p)).To(BeZero())

			for i := 0; i < fade.DefaultDuration; i++ {
				h.s.Tick()
			}
			Expect(h.s.Fades().Opacity(p)).To(Equal(fade.Opaque))
			Expect(h.s.Animating()).To(BeFalse())
			Expect(h.s.Displayed().Len()).To(Equal(4))
			Expect(h.s.Check()).To(Succeed())
		})

		It("leaves the cell empty when the load fails", func() {
			p := h.emptyCell()
			h.source.fail = true
			h.click(p.Row, p.Col)
			h.drain()

			Expect(h.s.Grid().At(p).IsEmpty()).To(BeTrue())
			Expect(h.s.Displayed().Len()).To(Equal(3))
			Expect(h.s.Stats().LoadsFailed).To(Equal(1))
			Expect(h.s.Check()).To(Succeed())
		})

		It("lands a load wherever its pending marker was dropped", func() {
			p := h.emptyCell()
			h.click(p.Row, p.Col)
			pendingID := h.s.Grid().At(p).ID

			var from grid.Pos
			for _, q := range h.s.Grid().Positions() {
				if h.s.Grid().At(q).IsFilled() {
					from = q
					break
				}
			}
			held := h.s.Grid().At(from).ID
			x, y := center(p.Row, p.Col)
			h.drag(from.Row, from.Col, x, y)

			Expect(h.s.Grid().At(p).ID).To(Equal(held))
			Expect(h.s.Grid().At(from).IsPending()).To(BeTrue())
			Expect(h.s.Check()).To(Succeed())

			h.drain()
			Expect(h.s.Grid().At(from).IsFilled()).To(BeTrue())
			Expect(h.s.Grid().At(from).ID).To(Equal(pendingID))
			Expect(h.s.Displayed().Len()).To(Equal(4))
			Expect(h.s.Check()).To(Succeed())
		})
	})

	Describe("resizing", func() {
		It("reinitializes when the size rule changes N and drops stale loads", func() {
			h := newHarness(216, func(c *config.Config) {
				c.Grid.Size = 0
				c.Grid.BlankFraction = 0.2
				c.Grid.DisplayedImages = 20
			})
			Expect(h.s.Resize(800, 800)).To(Succeed())
			Expect(h.s.Grid().Size()).To(Equal(4))
			Expect(h.s.TileSize()).To(Equal(200.0))

			Expect(h.s.Resize(400, 300)).To(Succeed())
			Expect(h.s.Grid().Size()).To(Equal(3))
			Expect(h.s.Epoch()).To(Equal(uint64(2)))
			Expect(h.s.TileSize()).To(Equal(100.0))

			h.drain()
			Expect(h.s.Stats().LoadsStale).To(Equal(13))
			Expect(h.s.Grid().Count(grid.StateFilled)).To(Equal(8))
			Expect(h.s.Check()).To(Succeed())
		})

		It("only rescales when N is unchanged", func() {
			h := newHarness(216, func(c *config.Config) { c.Grid.Size = 0 })
			Expect(h.s.Resize(800, 800)).To(Succeed())
			Expect(h.s.Resize(1000, 700)).To(Succeed())
			Expect(h.s.Epoch()).To(Equal(uint64(1)))
			Expect(h.s.TileSize()).To(Equal(175.0))
		})
	})

	Describe("random gestures", func() {
		It("never shows an image twice", func() {
			h := newHarness(40, func(c *config.Config) {
				c.Grid.Size = 4
				c.Grid.BlankFraction = 0.25
				c.Grid.DisplayedImages = 16
				c.Drag.ReleasePolicy = config.ReleaseDiscard
				c.Fade.Duration = 5
			})
			h.start()
			rng := rand.New(rand.NewSource(99))
			span := 4 * tile

			for step := 0; step < 2000; step++ {
				x := rng.Float64()*(span+20) - 10
				y := rng.Float64()*(span+20) - 10
				switch rng.Intn(6) {
				case 0:
					h.s.PointerDown(x, y)
				case 1:
					h.s.PointerMove(x, y)
				case 2:
					h.s.PointerUp(x, y)
				case 3:
					h.s.Tick()
				case 4:
					h.source.fail = rng.Intn(4) == 0
					h.drain()
				case 5:
					h.s.PointerDown(x, y)
					h.s.PointerUp(x, y)
				}
				Expect(h.s.Check()).To(Succeed(), "step %d", step)
			}

			h.s.PointerUp(-1, -1)
			h.drain()
			for h.s.Animating() {
				h.s.Tick()
			}
			ids := h.s.Grid().IDs()
			Expect(h.s.Displayed().IDs()).To(Equal(ids))
			Expect(h.s.Grid().Count(grid.StatePending)).To(BeZero())
		})
	})
})
