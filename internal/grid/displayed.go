package grid

import (
	"math/rand"
	"sort"
)

// rejectionFactor bounds rejection sampling at rejectionFactor*total draws
// before falling back to scanning the unused ids.
const rejectionFactor = 4

// DisplayedSet tracks the ids currently bound to some cell.
type DisplayedSet struct {
	ids map[ImageID]struct{}
}

func NewDisplayedSet() *DisplayedSet {
	return &DisplayedSet{ids: make(map[ImageID]struct{})}
}

// Bind adds id; binding a member again is a no-op.
func (s *DisplayedSet) Bind(id ImageID) { s.ids[id] = struct{}{} }

// Release removes id; releasing a non-member is a no-op.
func (s *DisplayedSet) Release(id ImageID) { delete(s.ids, id) }

func (s *DisplayedSet) Has(id ImageID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *DisplayedSet) Len() int { return len(s.ids) }

func (s *DisplayedSet) Reset() { s.ids = make(map[ImageID]struct{}) }

func (s *DisplayedSet) IDs() []ImageID {
	out := make([]ImageID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SampleUnused draws a uniformly random id in [0,total) that is not a
// member and binds it, so the id is reserved as soon as it is handed out.
// It returns ErrCatalogExhausted when every id is bound, and stops rejecting
// after rejectionFactor*total draws to pick uniformly among the remaining
// ids instead, so it always terminates.
func (s *DisplayedSet) SampleUnused(rng *rand.Rand, total int) (ImageID, error) {
	id, err := s.pick(rng, total)
	if err != nil {
		return 0, err
	}
	s.Bind(id)
	return id, nil
}

func (s *DisplayedSet) pick(rng *rand.Rand, total int) (ImageID, error) {
	free := total - s.countBelow(total)
	if total <= 0 || free <= 0 {
		return 0, ErrCatalogExhausted
	}
	for i := 0; i < rejectionFactor*total; i++ {
		id := ImageID(rng.Intn(total))
		if !s.Has(id) {
			return id, nil
		}
	}
	unused := s.unused(total)
	return unused[rng.Intn(len(unused))], nil
}

// unused lists the ids in [0,total) that are not members.
func (s *DisplayedSet) unused(total int) []ImageID {
	out := make([]ImageID, 0, total-s.countBelow(total))
	for id := ImageID(0); int(id) < total; id++ {
		if !s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// SampleDistinct returns n distinct unused ids without binding them.
func (s *DisplayedSet) SampleDistinct(rng *rand.Rand, total, n int) ([]ImageID, error) {
	if n > total-s.countBelow(total) {
		return nil, ErrCatalogExhausted
	}
	scratch := &DisplayedSet{ids: make(map[ImageID]struct{}, len(s.ids)+n)}
	for id := range s.ids {
		scratch.Bind(id)
	}
	out := make([]ImageID, 0, n)
	for len(out) < n {
		id, err := scratch.SampleUnused(rng, total)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// countBelow counts members inside the catalog range.
func (s *DisplayedSet) countBelow(total int) int {
	n := 0
	for id := range s.ids {
		if id >= 0 && int(id) < total {
			n++
		}
	}
	return n
}
