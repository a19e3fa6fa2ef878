package vhacd

import (
	"slices"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
)

// ConvexHull is one hull produced by a session. The buffers belong to the
// session: callers must not modify them, and should not keep them past the
// next Compute, Clean or Release. Clone returns an independent copy.
type ConvexHull struct {
	points    []float64
	triangles []uint32
	volume    float64
	center    [3]float64
}

func newConvexHull(h engine.Hull) ConvexHull {
	return ConvexHull{
		points:    h.Points,
		triangles: h.Triangles,
		volume:    h.Volume,
		center:    h.Center,
	}
}

// Points returns the vertex coordinates, three per vertex.
func (h ConvexHull) Points() []float64 { return h.points }

// Triangles returns the vertex indices, three per triangle, wound
// counter-clockwise seen from outside.
func (h ConvexHull) Triangles() []uint32 { return h.triangles }

func (h ConvexHull) NPoints() uint32    { return uint32(len(h.points) / 3) }
func (h ConvexHull) NTriangles() uint32 { return uint32(len(h.triangles) / 3) }
func (h ConvexHull) Volume() float64    { return h.volume }

// Center returns the centroid of the hull volume.
func (h ConvexHull) Center() [3]float64 { return h.center }

// Point returns vertex i. It panics if i >= NPoints().
func (h ConvexHull) Point(i uint32) [3]float64 {
	return [3]float64{h.points[3*i], h.points[3*i+1], h.points[3*i+2]}
}

// Clone returns a copy that does not share buffers with the session.
func (h ConvexHull) Clone() ConvexHull {
	h.points = slices.Clone(h.points)
	h.triangles = slices.Clone(h.triangles)
	return h
}
