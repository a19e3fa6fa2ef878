package vhacd_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/logging"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/testmesh"
)

func TestComputeUnitCube(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	if !s.IsReady() {
		t.Fatalf("IsReady = false after sync compute")
	}
	if got := s.State(); got != vhacd.StateCompleted {
		t.Fatalf("State = %v, want completed", got)
	}
	if n := s.NConvexHulls(); n != 1 {
		t.Fatalf("NConvexHulls = %d, want 1", n)
	}

	h, err := s.ConvexHull(0)
	if err != nil {
		t.Fatalf("ConvexHull(0): %v", err)
	}
	if h.NPoints() == 0 || h.NTriangles() == 0 {
		t.Fatalf("empty hull: %d points, %d triangles", h.NPoints(), h.NTriangles())
	}
	if !near(h.Volume(), 1, 1e-6) {
		t.Fatalf("Volume = %v, want 1", h.Volume())
	}

	var com [3]float64
	if !s.ComputeCenterOfMass(&com) {
		t.Fatalf("ComputeCenterOfMass = false")
	}
	for k, v := range com {
		if !near(v, 0.5, 1e-6) {
			t.Fatalf("com[%d] = %v, want 0.5", k, v)
		}
	}
}

func TestComputeUnitCubeSinglePrecision(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	m := testmesh.UnitCube()
	if err := s.Compute32(m.Points32(), m.NumPoints(), m.Triangles, m.NumTriangles(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute32: %v", err)
	}
	if n := s.NConvexHulls(); n != 1 {
		t.Fatalf("NConvexHulls = %d, want 1", n)
	}
}

func TestComputeTwoCubes(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	if err := compute64(s, testmesh.TwoCubes(1), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	n := s.NConvexHulls()
	if n < 2 {
		t.Fatalf("NConvexHulls = %d, want at least 2", n)
	}
	for i := uint32(0); i < n; i++ {
		h, err := s.ConvexHull(i)
		if err != nil {
			t.Fatalf("ConvexHull(%d): %v", i, err)
		}
		if len(h.Points()) == 0 || len(h.Triangles()) == 0 {
			t.Fatalf("hull %d has empty buffers", i)
		}
	}
}

func TestComputeUsesCountsNotLengths(t *testing.T) {
	m := testmesh.UnitCube()
	points := append(append([]float64(nil), m.Points...), math.NaN(), math.NaN(), math.NaN())
	triangles := append(append([]uint32(nil), m.Triangles...), 8, 8, 8)

	s := newSession(t, vhacd.Config{})
	if err := s.Compute64(points, m.NumPoints(), triangles, m.NumTriangles(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64 with longer buffers: %v", err)
	}
}

func TestConvexHullIndexChecks(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	if _, err := s.ConvexHull(0); !errors.Is(err, vhacd.ErrNotReady) {
		t.Fatalf("ConvexHull before compute = %v, want ErrNotReady", err)
	}
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	n := s.NConvexHulls()
	for _, idx := range []uint32{n, n + 1, math.MaxUint32} {
		if _, err := s.ConvexHull(idx); !errors.Is(err, vhacd.ErrIndexOutOfRange) {
			t.Fatalf("ConvexHull(%d) = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestCancelWithoutComputeIsNoop(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	s.Cancel()
	s.Cancel()
	if got := s.State(); got != vhacd.StateIdle {
		t.Fatalf("State = %v, want idle", got)
	}
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64 after Cancel: %v", err)
	}
	if n := s.NConvexHulls(); n != 1 {
		t.Fatalf("NConvexHulls = %d, want 1", n)
	}
	s.Cancel()
	if got := s.State(); got != vhacd.StateCompleted {
		t.Fatalf("Cancel after completion changed state to %v", got)
	}
}

func TestCleanDropsResults(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	s.Clean()
	if n := s.NConvexHulls(); n != 0 {
		t.Fatalf("NConvexHulls after Clean = %d, want 0", n)
	}
	if got := s.State(); got != vhacd.StateIdle {
		t.Fatalf("State after Clean = %v, want idle", got)
	}
	if _, err := s.ConvexHull(0); !errors.Is(err, vhacd.ErrNotReady) {
		t.Fatalf("ConvexHull after Clean = %v, want ErrNotReady", err)
	}

	// reusable
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64 after Clean: %v", err)
	}
}

func TestCenterOfMassWithoutHulls(t *testing.T) {
	sentinel := [3]float64{-7, -8, -9}

	s := newSession(t, vhacd.Config{})
	com := sentinel
	if s.ComputeCenterOfMass(&com) {
		t.Fatalf("ComputeCenterOfMass on idle session = true")
	}
	if com != sentinel {
		t.Fatalf("com modified: %v", com)
	}

	_ = compute64(s, testmesh.FlatQuad(), vhacd.DefaultParameters())
	if s.ComputeCenterOfMass(&com) || com != sentinel {
		t.Fatalf("ComputeCenterOfMass after failed compute changed output: %v", com)
	}

	empty := newSession(t, vhacd.Config{Engine: funcEngine(func(context.Context, engine.Notifier) ([]engine.Hull, error) {
		return []engine.Hull{{Points: cubeHull().Points, Triangles: cubeHull().Triangles}}, nil
	})})
	if err := compute64(empty, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	if empty.ComputeCenterOfMass(&com) || com != sentinel {
		t.Fatalf("ComputeCenterOfMass on zero volume hulls changed output: %v", com)
	}
	if s.ComputeCenterOfMass(nil) {
		t.Fatalf("ComputeCenterOfMass(nil) = true")
	}
}

func TestComputeInvalidInput(t *testing.T) {
	cube := testmesh.UnitCube()
	nan := append([]float64(nil), cube.Points...)
	nan[4] = math.NaN()
	badIndex := append([]uint32(nil), cube.Triangles...)
	badIndex[5] = 8

	tests := []struct {
		name      string
		points    []float64
		nPoints   uint32
		triangles []uint32
		nTris     uint32
	}{
		{"points buffer short", cube.Points[:21], 8, cube.Triangles, 12},
		{"triangle buffer short", cube.Points, 8, cube.Triangles[:33], 12},
		{"no points", cube.Points, 0, cube.Triangles, 12},
		{"no triangles", cube.Points, 8, cube.Triangles, 0},
		{"index out of range", cube.Points, 8, badIndex, 12},
		{"non finite", nan, 8, cube.Triangles, 12},
		{"flat", testmesh.FlatQuad().Points, 4, testmesh.FlatQuad().Triangles, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newSession(t, vhacd.Config{})
			err := s.Compute64(tc.points, tc.nPoints, tc.triangles, tc.nTris, vhacd.DefaultParameters())
			if !errors.Is(err, vhacd.ErrInvalidInput) {
				t.Fatalf("Compute64 = %v, want ErrInvalidInput", err)
			}
			var opErr *vhacd.OpError
			if !errors.As(err, &opErr) || opErr.Op != "Compute64" {
				t.Fatalf("error %v is not an OpError for Compute64", err)
			}
			if got := s.State(); got != vhacd.StateFailed {
				t.Fatalf("State = %v, want failed", got)
			}
			if n := s.NConvexHulls(); n != 0 {
				t.Fatalf("NConvexHulls = %d, want 0", n)
			}
			if !errors.Is(s.Err(), vhacd.ErrInvalidInput) {
				t.Fatalf("Err = %v, want ErrInvalidInput", s.Err())
			}
		})
	}
}

func TestComputePreconditions(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	cube := testmesh.UnitCube()

	if err := compute64(s, cube, nil); !errors.Is(err, vhacd.ErrParametersNotInitialized) {
		t.Fatalf("nil params = %v, want ErrParametersNotInitialized", err)
	}
	if err := compute64(s, cube, &vhacd.Parameters{}); !errors.Is(err, vhacd.ErrParametersNotInitialized) {
		t.Fatalf("zero params = %v, want ErrParametersNotInitialized", err)
	}
	bad := vhacd.DefaultParameters()
	bad.Concavity = 2
	if err := compute64(s, cube, bad); !errors.Is(err, vhacd.ErrInvalidParameter) {
		t.Fatalf("bad params = %v, want ErrInvalidParameter", err)
	}
	if got := s.State(); got != vhacd.StateIdle {
		t.Fatalf("rejected parameters changed state to %v", got)
	}
}

func TestReleasedSession(t *testing.T) {
	s := vhacd.NewSession(vhacd.Config{})
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	if err := s.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := s.Release(); !errors.Is(err, vhacd.ErrSessionReleased) {
		t.Fatalf("second Release = %v, want ErrSessionReleased", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close after Release: %v", err)
	}
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); !errors.Is(err, vhacd.ErrSessionReleased) {
		t.Fatalf("Compute64 after Release = %v, want ErrSessionReleased", err)
	}
	if _, err := s.ConvexHull(0); !errors.Is(err, vhacd.ErrSessionReleased) {
		t.Fatalf("ConvexHull after Release = %v, want ErrSessionReleased", err)
	}
	if _, err := s.Results(); !errors.Is(err, vhacd.ErrSessionReleased) {
		t.Fatalf("Results after Release = %v, want ErrSessionReleased", err)
	}
	if !s.IsReady() {
		t.Fatalf("IsReady after Release = false")
	}
	if n := s.NConvexHulls(); n != 0 {
		t.Fatalf("NConvexHulls after Release = %d", n)
	}
	s.Cancel()
	s.Clean()
	if got := s.State(); got != vhacd.StateReleased {
		t.Fatalf("State = %v, want released", got)
	}
}

func TestAsyncComputeDeliversOnPoll(t *testing.T) {
	var (
		polling   atomic.Bool
		outside   atomic.Int32
		progress  atomic.Int32
		logs      atomic.Int32
		lastStage atomic.Value
	)
	cb, err := vhacd.CreateUserCallback("ctx", func(userData any, overall, stage, op float64, stageName, _ string) {
		if !polling.Load() {
			outside.Add(1)
		}
		if userData != "ctx" {
			t.Errorf("userData = %v", userData)
		}
		for _, v := range []float64{overall, stage, op} {
			if v < 0 || v > 1 {
				t.Errorf("fraction %v outside [0, 1]", v)
			}
		}
		lastStage.Store(stageName)
		progress.Add(1)
	})
	if err != nil {
		t.Fatalf("CreateUserCallback: %v", err)
	}
	lg, err := vhacd.CreateUserLogger(func(string) {
		if !polling.Load() {
			outside.Add(1)
		}
		logs.Add(1)
	})
	if err != nil {
		t.Fatalf("CreateUserLogger: %v", err)
	}

	s := vhacd.NewSession(vhacd.Config{})
	p := vhacd.DefaultParameters()
	p.Async = true
	p.Callback = cb
	p.Logger = lg

	if err := compute64(s, testmesh.LShape(), p); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	polling.Store(true)
	ready := s.IsReady()
	polling.Store(false)
	if ready {
		t.Fatalf("IsReady = true right after async launch")
	}

	for {
		polling.Store(true)
		ready = s.IsReady()
		polling.Store(false)
		if ready {
			break
		}
	}

	if got := s.State(); got != vhacd.StateCompleted {
		t.Fatalf("State = %v (%v), want completed", got, s.Err())
	}
	if s.NConvexHulls() < 2 {
		t.Fatalf("NConvexHulls = %d, want at least 2", s.NConvexHulls())
	}
	if outside.Load() != 0 {
		t.Fatalf("%d deliveries happened outside IsReady", outside.Load())
	}
	if progress.Load() == 0 || logs.Load() == 0 {
		t.Fatalf("progress=%d logs=%d, want both delivered", progress.Load(), logs.Load())
	}
	if got := lastStage.Load(); got != engine.StageSimplification {
		t.Fatalf("last stage = %v", got)
	}

	if err := s.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := cb.Free(); err != nil {
		t.Fatalf("free callback: %v", err)
	}
	if err := lg.Free(); err != nil {
		t.Fatalf("free logger: %v", err)
	}
}

func TestAsyncCancel(t *testing.T) {
	g := newGateEngine()
	s := newSession(t, vhacd.Config{Engine: g})
	p := vhacd.DefaultParameters()
	p.Async = true

	if err := compute64(s, testmesh.UnitCube(), p); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	<-g.started
	if s.IsReady() {
		t.Fatalf("IsReady = true while engine blocked")
	}
	if got := s.State(); got != vhacd.StateComputing {
		t.Fatalf("State = %v, want computing", got)
	}

	s.Cancel()
	waitReady(t, s)

	if got := s.State(); got != vhacd.StateCancelled {
		t.Fatalf("State = %v, want cancelled", got)
	}
	if !errors.Is(s.Err(), vhacd.ErrCancelled) {
		t.Fatalf("Err = %v, want ErrCancelled", s.Err())
	}
	if n := s.NConvexHulls(); n != 0 {
		t.Fatalf("NConvexHulls = %d after cancel", n)
	}

	// the session is reusable
	close(g.release)
	if err := compute64(s, testmesh.UnitCube(), p); err != nil {
		t.Fatalf("Compute64 after cancel: %v", err)
	}
	waitReady(t, s)
	if n := s.NConvexHulls(); n != 1 {
		t.Fatalf("NConvexHulls = %d, want 1", n)
	}
}

func TestComputeInFlight(t *testing.T) {
	g := newGateEngine()
	s := newSession(t, vhacd.Config{Engine: g})
	p := vhacd.DefaultParameters()
	p.Async = true

	if err := compute64(s, testmesh.UnitCube(), p); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	if err := compute64(s, testmesh.UnitCube(), p); !errors.Is(err, vhacd.ErrComputeInFlight) {
		t.Fatalf("second Compute64 = %v, want ErrComputeInFlight", err)
	}
	if _, err := s.ConvexHull(0); !errors.Is(err, vhacd.ErrNotReady) {
		t.Fatalf("ConvexHull while computing = %v, want ErrNotReady", err)
	}
	close(g.release)
	waitReady(t, s)
	if got := s.State(); got != vhacd.StateCompleted {
		t.Fatalf("State = %v, want completed", got)
	}
}

func TestCleanStopsAsyncRun(t *testing.T) {
	g := newGateEngine()
	var delivered atomic.Int32
	cb, err := vhacd.CreateUserCallback(nil, func(any, float64, float64, float64, string, string) {
		delivered.Add(1)
	})
	if err != nil {
		t.Fatalf("CreateUserCallback: %v", err)
	}
	defer cb.Free()

	s := newSession(t, vhacd.Config{Engine: g})
	p := vhacd.DefaultParameters()
	p.Async = true
	p.Callback = cb
	if err := compute64(s, testmesh.UnitCube(), p); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	<-g.started

	s.Clean()
	if got := s.State(); got != vhacd.StateIdle {
		t.Fatalf("State after Clean = %v, want idle", got)
	}
	if !s.IsReady() {
		t.Fatalf("IsReady after Clean = false")
	}
	if delivered.Load() != 0 {
		t.Fatalf("queued progress delivered after Clean: %d", delivered.Load())
	}
}

func TestSyncCancelFromCallback(t *testing.T) {
	var s *vhacd.Session
	cb, err := vhacd.CreateUserCallback(nil, func(any, float64, float64, float64, string, string) {
		s.Cancel()
	})
	if err != nil {
		t.Fatalf("CreateUserCallback: %v", err)
	}
	s = newSession(t, vhacd.Config{})
	p := vhacd.DefaultParameters()
	p.Callback = cb

	err = compute64(s, testmesh.LShape(), p)
	if !errors.Is(err, vhacd.ErrCancelled) {
		t.Fatalf("Compute64 = %v, want ErrCancelled", err)
	}
	if got := s.State(); got != vhacd.StateCancelled {
		t.Fatalf("State = %v, want cancelled", got)
	}
	if !s.IsReady() {
		t.Fatalf("IsReady = false after sync cancel")
	}
	s.Clean()
	if err := cb.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestEngineFailures(t *testing.T) {
	tests := []struct {
		name string
		fn   funcEngine
	}{
		{"error", func(context.Context, engine.Notifier) ([]engine.Hull, error) {
			return nil, errors.New("boom")
		}},
		{"no hulls", func(context.Context, engine.Notifier) ([]engine.Hull, error) {
			return nil, nil
		}},
		{"panic", func(context.Context, engine.Notifier) ([]engine.Hull, error) {
			panic("engine bug")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newSession(t, vhacd.Config{Engine: tc.fn})
			err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters())
			if !errors.Is(err, vhacd.ErrComputeFailed) {
				t.Fatalf("Compute64 = %v, want ErrComputeFailed", err)
			}
			if got := s.State(); got != vhacd.StateFailed {
				t.Fatalf("State = %v, want failed", got)
			}
		})
	}
}

func TestEngineMessagesFallBackToSessionLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newSession(t, vhacd.Config{Logger: logging.NewZap(zap.New(core)), Name: "cube"})

	p := vhacd.DefaultParameters()
	p.OCLAcceleration = true
	if err := compute64(s, testmesh.UnitCube(), p); err != nil {
		t.Fatalf("Compute64: %v", err)
	}

	engineMsgs := logs.FilterField(zap.String("source", "engine"))
	if engineMsgs.Len() == 0 {
		t.Fatalf("no engine messages logged")
	}
	for _, e := range engineMsgs.All() {
		if e.Level != zapcore.DebugLevel {
			t.Fatalf("engine message %q at level %v", e.Message, e.Level)
		}
		if e.ContextMap()["session"] != "cube" {
			t.Fatalf("engine message missing session field: %v", e.ContextMap())
		}
	}
	if logs.FilterMessage("compute finished").Len() != 1 {
		t.Fatalf("compute finished not logged")
	}
}

func TestRecomputeReplacesResults(t *testing.T) {
	s := newSession(t, vhacd.Config{})
	if err := compute64(s, testmesh.UnitCube(), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	if err := compute64(s, testmesh.TwoCubes(1), vhacd.DefaultParameters()); err != nil {
		t.Fatalf("Compute64: %v", err)
	}
	if n := s.NConvexHulls(); n != 2 {
		t.Fatalf("NConvexHulls = %d, want 2", n)
	}

	// a rejected input still discards the previous result
	if err := compute64(s, testmesh.FlatQuad(), vhacd.DefaultParameters()); err == nil {
		t.Fatalf("flat input accepted")
	}
	if n := s.NConvexHulls(); n != 0 {
		t.Fatalf("NConvexHulls = %d after failed compute", n)
	}
}
