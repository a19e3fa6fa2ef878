package vhacd

import (
	"fmt"
	"math"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
)

type coordinate interface {
	~float32 | ~float64
}

// copyMesh validates the caller's buffers and copies the used prefix into a
// double precision mesh owned by the session. Only the first 3*pointCount
// coordinates and 3*triangleCount indices are read.
func copyMesh[F coordinate](points []F, pointCount uint32, triangles []uint32, triangleCount uint32) (engine.Mesh, error) {
	if pointCount == 0 || triangleCount == 0 {
		return engine.Mesh{}, fmt.Errorf("%w: empty mesh (%d points, %d triangles)", ErrInvalidInput, pointCount, triangleCount)
	}
	np, nt := 3*uint64(pointCount), 3*uint64(triangleCount)
	if np > uint64(len(points)) {
		return engine.Mesh{}, fmt.Errorf("%w: %d points need %d coordinates, buffer has %d", ErrInvalidInput, pointCount, np, len(points))
	}
	if nt > uint64(len(triangles)) {
		return engine.Mesh{}, fmt.Errorf("%w: %d triangles need %d indices, buffer has %d", ErrInvalidInput, triangleCount, nt, len(triangles))
	}

	m := engine.Mesh{
		Points:    make([]float64, np),
		Triangles: make([]uint32, nt),
	}
	for i, v := range points[:np] {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return engine.Mesh{}, fmt.Errorf("%w: coordinate %d of point %d is not finite", ErrInvalidInput, i%3, i/3)
		}
		m.Points[i] = f
	}
	for i, idx := range triangles[:nt] {
		if idx >= pointCount {
			return engine.Mesh{}, fmt.Errorf("%w: triangle %d references point %d of %d", ErrInvalidInput, i/3, idx, pointCount)
		}
		m.Triangles[i] = idx
	}
	return m, nil
}
