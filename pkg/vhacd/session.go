package vhacd

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hsiuhsiu/vhacd-go/internal/backend"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/logging"
)

// State is the lifecycle state of a Session.
type State int32

const (
	StateIdle State = iota
	StateComputing
	StateCompleted
	StateCancelled
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComputing:
		return "computing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// run is one Compute call. For async runs hulls and err are written by the
// background goroutine before done is closed.
type run struct {
	cancel    context.CancelFunc
	async     bool
	precision string
	done      chan struct{}
	queue     *queue
	sinks     *sinks

	hulls []engine.Hull
	err   error
}

// Session drives one decomposition engine instance through Compute, polling,
// cancellation and result extraction. At most one Compute is in flight at a
// time. A Session must be released with Release or Close; a finalizer
// releases sessions that are dropped without it.
type Session struct {
	mu   sync.Mutex
	name string
	log  logging.Logger
	eng  engine.Engine

	state State
	err   error
	hulls []ConvexHull
	gen   uint64
	run   *run
	bound []backend.Handle
}

var sessionSeq atomic.Uint64

// NewSession returns an idle session.
func NewSession(cfg Config) *Session {
	name := cfg.Name
	if name == "" {
		name = "session-" + strconv.FormatUint(sessionSeq.Add(1), 10)
	}
	s := &Session{
		name: name,
		log:  cfg.logger().With("session", name),
		eng:  cfg.engine(),
	}
	runtime.SetFinalizer(s, func(s *Session) { _ = s.Release() })
	return s
}

func (s *Session) Name() string { return s.name }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended the last run, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Compute32 decomposes a mesh given in single precision. pointCount and
// triangleCount select the prefix of the buffers to use. The buffers are
// copied before Compute32 returns.
//
// In sync mode the call returns once the run has finished: nil when it
// produced hulls, otherwise an error matching ErrInvalidInput,
// ErrComputeFailed or ErrCancelled. With params.Async it returns nil once the
// background run is launched; poll IsReady for completion.
func (s *Session) Compute32(points []float32, pointCount uint32, triangles []uint32, triangleCount uint32, params *Parameters) error {
	return opError("Compute32", compute(s, "f32", points, pointCount, triangles, triangleCount, params))
}

// Compute64 is Compute32 for double precision points.
func (s *Session) Compute64(points []float64, pointCount uint32, triangles []uint32, triangleCount uint32, params *Parameters) error {
	return opError("Compute64", compute(s, "f64", points, pointCount, triangles, triangleCount, params))
}

func compute[F coordinate](s *Session, precision string, points []F, pointCount uint32, triangles []uint32, triangleCount uint32, params *Parameters) error {
	s.mu.Lock()
	if s.state == StateReleased {
		s.mu.Unlock()
		return ErrSessionReleased
	}
	if s.run != nil {
		s.mu.Unlock()
		return ErrComputeInFlight
	}
	if err := params.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	bound, err := bindProxies(params)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	// prior results and bindings go away even when the new input is rejected
	s.discardLocked()
	s.unbindLocked()
	s.bound = bound

	mesh, err := copyMesh(points, pointCount, triangles, triangleCount)
	if err != nil {
		s.state, s.err = StateFailed, err
		s.mu.Unlock()
		s.log.Warn(context.Background(), "compute rejected", "precision", precision, "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		cancel:    cancel,
		async:     params.Async,
		precision: precision,
		done:      make(chan struct{}),
		sinks:     &sinks{callback: params.Callback, logger: params.Logger, fallback: s.log},
	}
	s.run = r
	s.state = StateComputing
	eng, ep := s.eng, params.engineParams()
	s.log.Debug(ctx, "compute started",
		"precision", precision,
		"async", r.async,
		"points", pointCount,
		"triangles", triangleCount,
	)

	if r.async {
		r.queue = &queue{}
		go func() {
			defer close(r.done)
			r.hulls, r.err = decompose(ctx, eng, mesh, ep, r.queue)
		}()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	hulls, err := decompose(ctx, eng, mesh, ep, directNotifier{k: r.sinks})

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(r.done)
	if s.run != r {
		// stopped by Clean or Release while running
		return ErrCancelled
	}
	return s.finishLocked(r, hulls, err)
}

func decompose(ctx context.Context, eng engine.Engine, mesh engine.Mesh, p engine.Params, n engine.Notifier) (hulls []engine.Hull, err error) {
	defer func() {
		if v := recover(); v != nil {
			hulls, err = nil, fmt.Errorf("engine panic: %v", v)
		}
	}()
	return eng.Decompose(ctx, mesh, p, n)
}

// bindProxies retains the proxies referenced by params so they cannot be
// freed while the session uses them.
func bindProxies(params *Parameters) ([]backend.Handle, error) {
	var hs []backend.Handle
	if params.Callback != nil {
		hs = append(hs, params.Callback.h)
	}
	if params.Logger != nil {
		hs = append(hs, params.Logger.h)
	}
	for i, h := range hs {
		if err := backend.Retain(h); err != nil {
			for _, done := range hs[:i] {
				backend.Unretain(done)
			}
			return nil, remapProxyError(err)
		}
	}
	return hs, nil
}

func (s *Session) unbindLocked() {
	for _, h := range s.bound {
		backend.Unretain(h)
	}
	s.bound = nil
}

func (s *Session) discardLocked() {
	s.hulls = nil
	s.err = nil
	s.gen++
}

// finishLocked commits the outcome of r and returns the run error.
func (s *Session) finishLocked(r *run, hulls []engine.Hull, err error) error {
	s.run = nil
	r.cancel()
	ctx := context.Background()

	switch {
	case err == nil && len(hulls) > 0:
		s.state, s.err = StateCompleted, nil
		s.hulls = make([]ConvexHull, len(hulls))
		for i, h := range hulls {
			s.hulls[i] = newConvexHull(h)
		}
		s.log.Info(ctx, "compute finished", "precision", r.precision, "hulls", len(hulls))
		return nil
	case errors.Is(err, context.Canceled):
		s.state, s.err = StateCancelled, ErrCancelled
		s.log.Info(ctx, "compute cancelled", "precision", r.precision)
		return s.err
	case err == nil || errors.Is(err, engine.ErrNoHulls):
		s.state, s.err = StateFailed, fmt.Errorf("%w: no convex hulls produced", ErrComputeFailed)
	case errors.Is(err, engine.ErrDegenerate):
		s.state, s.err = StateFailed, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		s.state, s.err = StateFailed, fmt.Errorf("%w: %w", ErrComputeFailed, err)
	}
	s.log.Warn(ctx, "compute failed", "precision", r.precision, "error", s.err)
	return s.err
}

// stopLocked cancels the run in flight, if any. Async runs are waited for
// with s.mu released and their undelivered messages are dropped. Sync runs
// execute on the Compute caller's goroutine, possibly the current one, so
// they are detached instead: their remaining messages are suppressed and
// their outcome is ignored.
func (s *Session) stopLocked() {
	for s.run != nil {
		r := s.run
		s.run = nil
		r.cancel()
		r.sinks.stopped.Store(true)
		s.log.Debug(context.Background(), "compute stopped", "precision", r.precision, "async", r.async)
		if r.async {
			s.mu.Unlock()
			<-r.done
			s.mu.Lock()
		}
	}
}

// Cancel asks the run in flight to stop at its next checkpoint. It returns
// immediately and does nothing when no run is in flight.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		s.run.cancel()
	}
}

// IsReady reports whether the session has no run in flight.
//
// For an async run, IsReady is the delivery point of progress and log
// messages: queued messages are passed to the bound proxies on the calling
// goroutine. The poll that observes the end of the run delivers its last
// messages, commits the outcome and still returns false; the next poll
// returns true. IsReady therefore always returns false right after an async
// Compute.
//
// A sync run in flight on another goroutine reports false.
func (s *Session) IsReady() bool {
	s.mu.Lock()
	r := s.run
	if r == nil {
		s.mu.Unlock()
		return true
	}
	if !r.async {
		s.mu.Unlock()
		return false
	}
	finished := false
	select {
	case <-r.done:
		finished = true
	default:
	}
	s.mu.Unlock()

	for _, ev := range r.queue.drain() {
		r.sinks.deliver(ev)
	}

	if finished {
		s.mu.Lock()
		if s.run == r {
			_ = s.finishLocked(r, r.hulls, r.err)
		}
		s.mu.Unlock()
	}
	return false
}

// NConvexHulls returns the number of hulls of the last completed run, or 0.
func (s *Session) NConvexHulls() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCompleted {
		return 0
	}
	return uint32(len(s.hulls))
}

// ConvexHull returns hull index of the last completed run.
func (s *Session) ConvexHull(index uint32) (ConvexHull, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateReleased:
		return ConvexHull{}, opError("ConvexHull", ErrSessionReleased)
	case s.state != StateCompleted:
		return ConvexHull{}, opError("ConvexHull", fmt.Errorf("%w: session is %s", ErrNotReady, s.state))
	case uint64(index) >= uint64(len(s.hulls)):
		return ConvexHull{}, opError("ConvexHull", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.hulls)))
	}
	return s.hulls[index], nil
}

// Results returns a view over the hulls of the last completed run.
func (s *Session) Results() (*ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateReleased:
		return nil, opError("Results", ErrSessionReleased)
	case s.state != StateCompleted:
		return nil, opError("Results", fmt.Errorf("%w: session is %s", ErrNotReady, s.state))
	}
	return &ResultSet{s: s, gen: s.gen, hulls: s.hulls}, nil
}

// ComputeCenterOfMass writes the volume weighted centroid of all hulls to
// com. It returns false, leaving com untouched, when there is no completed
// result or the hulls enclose no volume.
func (s *Session) ComputeCenterOfMass(com *[3]float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if com == nil || s.state != StateCompleted || len(s.hulls) == 0 {
		return false
	}
	var (
		total float64
		acc   [3]float64
	)
	for _, h := range s.hulls {
		total += h.volume
		for k := range acc {
			acc[k] += h.volume * h.center[k]
		}
	}
	if !(total > 0) {
		return false
	}
	for k := range acc {
		com[k] = acc[k] / total
	}
	return true
}

// Clean stops any run in flight, drops the results and unbinds the proxies.
// The session is idle afterwards and can compute again. Clean on a released
// session does nothing.
func (s *Session) Clean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return
	}
	s.stopLocked()
	s.discardLocked()
	s.unbindLocked()
	s.state = StateIdle
}

// Release stops any run in flight and releases everything the session
// holds. Every later call fails with ErrSessionReleased, except Cancel,
// Clean and IsReady which do nothing.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return opError("Release", ErrSessionReleased)
	}
	runtime.SetFinalizer(s, nil)
	s.stopLocked()
	s.discardLocked()
	s.unbindLocked()
	s.state = StateReleased
	s.log.Debug(context.Background(), "session released")
	return nil
}

// Close releases the session. Unlike Release it may be called repeatedly.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	if err := s.Release(); err != nil && !errors.Is(err, ErrSessionReleased) {
		return err
	}
	return nil
}
