package vhacd

import (
	"context"
)

// Decompose64 runs one synchronous decomposition of a whole mesh on a fresh
// session and returns copies of the hulls that outlive it. Cancelling ctx
// cancels the run. params may be nil for the defaults; Async is ignored.
func Decompose64(ctx context.Context, cfg Config, points []float64, triangles []uint32, params *Parameters) ([]ConvexHull, error) {
	return oneShot(ctx, cfg, params, func(s *Session, p *Parameters) error {
		return s.Compute64(points, uint32(len(points)/3), triangles, uint32(len(triangles)/3), p)
	})
}

// Decompose32 is Decompose64 for single precision points.
func Decompose32(ctx context.Context, cfg Config, points []float32, triangles []uint32, params *Parameters) ([]ConvexHull, error) {
	return oneShot(ctx, cfg, params, func(s *Session, p *Parameters) error {
		return s.Compute32(points, uint32(len(points)/3), triangles, uint32(len(triangles)/3), p)
	})
}

func oneShot(ctx context.Context, cfg Config, params *Parameters, compute func(*Session, *Parameters) error) ([]ConvexHull, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params == nil {
		params = DefaultParameters()
	}
	p := *params
	p.Async = false

	s := NewSession(cfg)
	defer s.Close()

	stop := context.AfterFunc(ctx, s.Cancel)
	defer stop()

	if err := compute(s, &p); err != nil {
		return nil, err
	}
	rs, err := s.Results()
	if err != nil {
		return nil, err
	}
	out := make([]ConvexHull, 0, rs.Len())
	for _, h := range rs.All() {
		out = append(out, h.Clone())
	}
	return out, nil
}
