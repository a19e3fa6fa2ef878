package engine

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/internal/hull"
)

// mergeCost is the volume a merged hull adds on top of its two inputs.
func mergeCost(a, b *hull.Hull) (float64, *hull.Hull) {
	pts := make([]r3.Vec, 0, len(a.Points)+len(b.Points))
	pts = append(pts, a.Points...)
	pts = append(pts, b.Points...)
	m, err := hull.Compute(pts)
	if err != nil {
		return math.Inf(1), nil
	}
	return m.Volume - a.Volume - b.Volume, m
}

// merge combines hulls pairwise, cheapest pair first, until at most limit
// remain. A limit of zero disables merging.
func (h *Hierarchical) merge(ctx context.Context, hulls []*hull.Hull, limit int, rep *reporter) ([]*hull.Hull, error) {
	if limit <= 0 || len(hulls) <= limit {
		return hulls, nil
	}

	n := len(hulls)
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers())
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cost[i][j], _ = mergeCost(hulls[i], hulls[j])
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}
	remaining := n
	for remaining > limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if alive[j] && cost[i][j] < best {
					best, bi, bj = cost[i][j], i, j
				}
			}
		}
		if bi < 0 {
			break
		}

		_, merged := mergeCost(hulls[bi], hulls[bj])
		if merged == nil {
			cost[bi][bj] = math.Inf(1)
			continue
		}
		hulls[bi] = merged
		alive[bj] = false
		hulls[bj] = nil
		remaining--

		for k := 0; k < n; k++ {
			if k == bi || !alive[k] {
				continue
			}
			i, j := k, bi
			if i > j {
				i, j = j, i
			}
			cost[i][j], _ = mergeCost(hulls[i], hulls[j])
		}
		rep.update(float64(n-remaining)/float64(n-limit), 1, "merge")
	}

	out := hulls[:0]
	for i, hl := range hulls {
		if alive[i] {
			out = append(out, hl)
		}
	}
	return out, nil
}

// simplify reduces every hull to at most maxVertices vertices.
func simplify(ctx context.Context, hulls []*hull.Hull, maxVertices int, rep *reporter) ([]*hull.Hull, error) {
	if maxVertices <= 0 {
		return hulls, nil
	}
	for i, hl := range hulls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(hl.Points) > maxVertices {
			reduced, err := hull.ComputeLimited(hl.Points, maxVertices)
			if err == nil {
				hulls[i] = reduced
			}
		}
		rep.update(float64(i+1)/float64(len(hulls)), 1, "reduce vertices")
	}
	return hulls, nil
}

type cellKey [3]int64

// snapper replaces points lying within tol of an input vertex by that vertex.
type snapper struct {
	tol   float64
	cells map[cellKey][]r3.Vec
}

func newSnapper(pts []r3.Vec, tol float64) *snapper {
	s := &snapper{tol: tol, cells: make(map[cellKey][]r3.Vec)}
	for _, p := range pts {
		k := s.key(p)
		s.cells[k] = append(s.cells[k], p)
	}
	return s
}

func (s *snapper) key(p r3.Vec) cellKey {
	return cellKey{
		int64(math.Floor(p.X / s.tol)),
		int64(math.Floor(p.Y / s.tol)),
		int64(math.Floor(p.Z / s.tol)),
	}
}

func (s *snapper) snap(p r3.Vec) r3.Vec {
	k := s.key(p)
	best, bestD := p, s.tol*s.tol
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, q := range s.cells[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if d := r3.Norm2(r3.Sub(p, q)); d <= bestD {
						best, bestD = q, d
					}
				}
			}
		}
	}
	return best
}
