package grid

import (
	"errors"
	"math/rand"
	"testing"

	. "github.com/onsi/gomega"
)

func TestGridSwap(t *testing.T) {
	g := New(3)
	a, b, c := Pos{0, 0}, Pos{2, 1}, Pos{1, 1}
	g.Set(a, Filled(Tile{ID: 7}))
	g.Set(b, Pending(9, 4))
	g.Set(c, Filled(Tile{ID: 3}))

	g.Swap(a, b)

	if got := g.At(a); !got.IsPending() || got.ID != 9 || got.Ticket != 4 {
		t.Errorf("expected pending 9#4 at %v, got %v", a, got)
	}
	if got := g.At(b); !got.IsFilled() || got.ID != 7 {
		t.Errorf("expected filled 7 at %v, got %v", b, got)
	}
	if got := g.At(c); got.ID != 3 {
		t.Errorf("third cell changed: %v", got)
	}
}

func TestGridOutOfBoundsPanics(t *testing.T) {
	g := New(2)
	for _, p := range []Pos{{-1, 0}, {0, 2}, {2, 0}, {0, -1}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for %v", p)
				}
			}()
			g.At(p)
		}()
	}
}

func TestGridFind(t *testing.T) {
	g := New(2)
	g.Set(Pos{1, 0}, Pending(5, 11))
	g.Set(Pos{0, 1}, Filled(Tile{ID: 2}))

	if p, ok := g.FindTicket(11); !ok || p != (Pos{1, 0}) {
		t.Errorf("FindTicket = %v %v", p, ok)
	}
	if _, ok := g.FindTicket(12); ok {
		t.Error("expected no match for unknown ticket")
	}
	if p, ok := g.FindID(2); !ok || p != (Pos{0, 1}) {
		t.Errorf("FindID = %v %v", p, ok)
	}
	if g.Count(StateEmpty) != 2 || g.Count(StatePending) != 1 || g.Count(StateFilled) != 1 {
		t.Errorf("unexpected counts: %v", g.Cells())
	}
}

func TestDisplayedSetIdempotent(t *testing.T) {
	s := NewDisplayedSet()
	s.Bind(4)
	s.Bind(4)
	if s.Len() != 1 {
		t.Fatalf("expected 1 member, got %d", s.Len())
	}
	s.Release(4)
	s.Release(4)
	s.Release(99)
	if s.Len() != 0 {
		t.Errorf("expected empty set, got %v", s.IDs())
	}
}

func TestSampleUnusedSkipsMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := NewDisplayedSet()
	for id := ImageID(0); id < 9; id++ {
		s.Bind(id)
	}
	for i := 0; i < 50; i++ {
		id, err := s.SampleUnused(rng, 10)
		if err != nil {
			t.Fatalf("sample failed: %v", err)
		}
		if id != 9 {
			t.Fatalf("expected the only unused id 9, got %d", id)
		}
		if !s.Has(9) {
			t.Fatal("expected sampled id to be reserved")
		}
		s.Release(9)
	}
}

func TestSampleUnusedNeverRepeatsWithoutBind(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s := NewDisplayedSet()
		seen := map[ImageID]bool{}
		for i := 0; i < 8; i++ {
			id, err := s.SampleUnused(rng, 16)
			if err != nil {
				t.Fatalf("seed %d: sample %d failed: %v", seed, i, err)
			}
			if seen[id] {
				t.Fatalf("seed %d: id %d returned twice in 8 calls", seed, id)
			}
			seen[id] = true
		}
		if s.Len() != 8 {
			t.Errorf("seed %d: expected 8 reserved ids, got %d", seed, s.Len())
		}
	}
}

func TestSampleUnusedDrainsCatalog(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := NewDisplayedSet()
	for i := 0; i < 5; i++ {
		if _, err := s.SampleUnused(rng, 5); err != nil {
			t.Fatalf("sample %d failed: %v", i, err)
		}
	}
	if _, err := s.SampleUnused(rng, 5); !errors.Is(err, ErrCatalogExhausted) {
		t.Errorf("expected ErrCatalogExhausted after draining, got %v", err)
	}
}

func TestSampleUnusedIgnoresOutOfRangeMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := NewDisplayedSet()
	for id := ImageID(10); id < 30; id++ {
		s.Bind(id)
	}
	s.Bind(1)
	if got := s.unused(4); len(got) != 3 {
		t.Fatalf("expected 3 unused ids below 4, got %v", got)
	}
	id, err := s.SampleUnused(rng, 4)
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	if id < 0 || id >= 4 || id == 1 {
		t.Errorf("expected a free id below 4, got %d", id)
	}
}

func TestSampleUnusedExhausted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := NewDisplayedSet()
	for id := ImageID(0); id < 4; id++ {
		s.Bind(id)
	}
	if _, err := s.SampleUnused(rng, 4); !errors.Is(err, ErrCatalogExhausted) {
		t.Errorf("expected ErrCatalogExhausted, got %v", err)
	}
	if _, err := s.SampleUnused(rng, 0); !errors.Is(err, ErrCatalogExhausted) {
		t.Errorf("expected ErrCatalogExhausted for empty catalog, got %v", err)
	}
}

func TestSampleDistinct(t *testing.T) {
	g := NewWithT(t)
	rng := rand.New(rand.NewSource(42))
	s := NewDisplayedSet()
	s.Bind(0)

	ids, err := s.SampleDistinct(rng, 8, 7)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ids).To(HaveLen(7))
	g.Expect(ids).NotTo(ContainElement(ImageID(0)))

	seen := map[ImageID]bool{}
	for _, id := range ids {
		g.Expect(seen[id]).To(BeFalse(), "duplicate id %d", id)
		seen[id] = true
	}
	g.Expect(s.Len()).To(Equal(1), "SampleDistinct must not bind")

	_, err = s.SampleDistinct(rng, 8, 8)
	g.Expect(err).To(MatchError(ErrCatalogExhausted))
}

func TestLayoutCounts(t *testing.T) {
	tests := []struct {
		n         int
		blank     float64
		displayed int
		wantBlank int
		wantFill  int
	}{
		{4, 0.2, 20, 3, 13},
		{4, 0.2, 13, 3, 13},
		{4, 0.2, 5, 3, 5},
		{3, 0.2, 20, 1, 8},
		{2, 0, 4, 0, 4},
		{2, 1.5, 4, 4, 0},
	}
	for _, tt := range tests {
		rng := rand.New(rand.NewSource(int64(tt.n)))
		plan, err := Layout(rng, tt.n, tt.blank, tt.displayed)
		if err != nil {
			t.Fatalf("layout failed: %v", err)
		}
		if plan.Blank != tt.wantBlank || plan.Filled != tt.wantFill {
			t.Errorf("Layout(%d, %.1f, %d) = blank %d fill %d, want %d %d",
				tt.n, tt.blank, tt.displayed, plan.Blank, plan.Filled, tt.wantBlank, tt.wantFill)
		}
		slots := 0
		for _, ok := range plan.Slots {
			if ok {
				slots++
			}
		}
		if slots != tt.wantFill || len(plan.SlotPositions()) != tt.wantFill {
			t.Errorf("expected %d slots, got %d", tt.wantFill, slots)
		}
	}
}

func TestLayoutInvalidSize(t *testing.T) {
	_, err := Layout(rand.New(rand.NewSource(1)), 0, 0.2, 4)
	if !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestLayoutShufflesPositions(t *testing.T) {
	seen := map[int]bool{}
	for seed := int64(0); seed < 64; seed++ {
		plan, _ := Layout(rand.New(rand.NewSource(seed)), 4, 0.5, 1)
		for i, ok := range plan.Slots {
			if ok {
				seen[i] = true
			}
		}
	}
	if len(seen) < 8 {
		t.Errorf("expected the single slot to land in many positions, saw %d", len(seen))
	}
}
