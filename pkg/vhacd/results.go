package vhacd

import "iter"

// ResultSet is a read only view over the hulls of a completed run. It goes
// stale as soon as the session starts another Compute, or is cleaned or
// released; At then reports ErrResultsStale.
type ResultSet struct {
	s     *Session
	gen   uint64
	hulls []ConvexHull
}

// Len returns the number of hulls the set was created with.
func (r *ResultSet) Len() int { return len(r.hulls) }

func (r *ResultSet) stale() bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.gen != r.gen
}

// At returns hull i.
func (r *ResultSet) At(i int) (ConvexHull, error) {
	if r.stale() {
		return ConvexHull{}, ErrResultsStale
	}
	if i < 0 || i >= len(r.hulls) {
		return ConvexHull{}, ErrIndexOutOfRange
	}
	return r.hulls[i], nil
}

// All yields the hulls in order. Iteration stops early if the set goes stale.
func (r *ResultSet) All() iter.Seq2[int, ConvexHull] {
	return func(yield func(int, ConvexHull) bool) {
		for i := range r.hulls {
			h, err := r.At(i)
			if err != nil || !yield(i, h) {
				return
			}
		}
	}
}

// TotalVolume returns the summed volume of all hulls.
func (r *ResultSet) TotalVolume() float64 {
	var v float64
	for _, h := range r.hulls {
		v += h.volume
	}
	return v
}
