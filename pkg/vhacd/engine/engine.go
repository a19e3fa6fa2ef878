package engine

import (
	"context"
	"errors"
)

var (
	// ErrDegenerate reports a mesh that encloses no volume.
	ErrDegenerate = errors.New("engine: degenerate mesh")

	// ErrNoHulls reports a run that finished without producing any hull.
	ErrNoHulls = errors.New("engine: no convex hulls produced")
)

// Mesh is a triangle mesh in flat layout: three coordinates per point and
// three point indices per triangle.
type Mesh struct {
	Points    []float64
	Triangles []uint32
}

// NumPoints returns the number of points in the mesh.
func (m Mesh) NumPoints() int { return len(m.Points) / 3 }

// NumTriangles returns the number of triangles in the mesh.
func (m Mesh) NumTriangles() int { return len(m.Triangles) / 3 }

// Params carries the decomposition knobs an engine understands. Engines are
// free to ignore settings they do not support.
type Params struct {
	Concavity               float64
	Alpha                   float64
	Beta                    float64
	MinVolumePerCH          float64
	Resolution              uint32
	MaxNumVerticesPerCH     uint32
	PlaneDownsampling       uint32
	ConvexHullDownsampling  uint32
	MaxConvexHulls          uint32
	PCA                     bool
	Tetrahedron             bool
	ConvexHullApproximation bool
	OCLAcceleration         bool
	ProjectHullVertices     bool
}

// Hull is one convex hull produced by an engine, in the same flat layout as
// Mesh. Triangles are oriented counter-clockwise seen from outside.
type Hull struct {
	Points    []float64
	Triangles []uint32
	Volume    float64
	Center    [3]float64
}

// Notifier receives progress and log messages from a running decomposition.
//
// Engines must only call the notifier from the goroutine that invoked
// Decompose. The session relies on this to keep user callbacks off
// background goroutines.
type Notifier interface {
	Progress(overall, stage, operation float64, stageName, operationName string)
	Log(msg string)
}

// Engine turns a triangle mesh into a set of convex hulls.
//
// Decompose must return ctx.Err() (or an error wrapping it) when it stops
// because ctx was cancelled, and ErrDegenerate when the mesh encloses no
// volume.
type Engine interface {
	Decompose(ctx context.Context, mesh Mesh, params Params, n Notifier) ([]Hull, error)
}

// NopNotifier discards every message.
type NopNotifier struct{}

func (NopNotifier) Progress(float64, float64, float64, string, string) {}
func (NopNotifier) Log(string)                                        {}
