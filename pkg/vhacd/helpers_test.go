package vhacd_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/testmesh"
)

func newSession(t *testing.T, cfg vhacd.Config) *vhacd.Session {
	t.Helper()
	s := vhacd.NewSession(cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func compute64(s *vhacd.Session, m testmesh.Mesh, p *vhacd.Parameters) error {
	return s.Compute64(m.Points, m.NumPoints(), m.Triangles, m.NumTriangles(), p)
}

func waitReady(t *testing.T, s *vhacd.Session) int {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	polls := 0
	for !s.IsReady() {
		polls++
		if time.Now().After(deadline) {
			t.Fatalf("session not ready after %d polls", polls)
		}
		time.Sleep(time.Millisecond)
	}
	return polls
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func cubeHull() engine.Hull {
	m := testmesh.UnitCube()
	return engine.Hull{
		Points:    m.Points,
		Triangles: m.Triangles,
		Volume:    1,
		Center:    [3]float64{0.5, 0.5, 0.5},
	}
}

// gateEngine reports progress, then blocks until released or cancelled.
type gateEngine struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func newGateEngine() *gateEngine {
	return &gateEngine{release: make(chan struct{}), started: make(chan struct{})}
}

func (g *gateEngine) Decompose(ctx context.Context, _ engine.Mesh, _ engine.Params, n engine.Notifier) ([]engine.Hull, error) {
	n.Log("gate: waiting")
	n.Progress(0.25, 0.5, 0, "gate", "wait")
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	n.Progress(1, 1, 1, "gate", "done")
	return []engine.Hull{cubeHull()}, nil
}

// funcEngine adapts a function to engine.Engine.
type funcEngine func(ctx context.Context, n engine.Notifier) ([]engine.Hull, error)

func (f funcEngine) Decompose(ctx context.Context, _ engine.Mesh, _ engine.Params, n engine.Notifier) ([]engine.Hull, error) {
	return f(ctx, n)
}
