package main

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hsiuhsiu/vhacd-go/internal/backend"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/logging"
)

// params mirrors VHACD_Parameters field for field.
type params struct {
	Concavity      float64
	Alpha          float64
	Beta           float64
	MinVolumePerCH float64
	Callback       uintptr
	Logger         uintptr

	Resolution              uint32
	MaxNumVerticesPerCH     uint32
	PlaneDownsampling       uint32
	ConvexHullDownsampling  uint32
	PCA                     uint32
	Mode                    uint32
	ConvexHullApproximation uint32
	OCLAcceleration         uint32
	MaxConvexHulls          uint32
	ProjectHullVertices     bool
	Async                   bool
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func defaultParams() params {
	d := vhacd.DefaultParameters()
	return params{
		Concavity:               d.Concavity,
		Alpha:                   d.Alpha,
		Beta:                    d.Beta,
		MinVolumePerCH:          d.MinVolumePerCH,
		Resolution:              d.Resolution,
		MaxNumVerticesPerCH:     d.MaxNumVerticesPerCH,
		PlaneDownsampling:       d.PlaneDownsampling,
		ConvexHullDownsampling:  d.ConvexHullDownsampling,
		PCA:                     boolToUint(d.PCA),
		Mode:                    uint32(d.Mode),
		ConvexHullApproximation: boolToUint(d.ConvexHullApproximation),
		OCLAcceleration:         boolToUint(d.OCLAcceleration),
		MaxConvexHulls:          d.MaxConvexHulls,
		ProjectHullVertices:     d.ProjectHullVertices,
		Async:                   d.Async,
	}
}

// parameters converts p, resolving the proxy handles. Range checks are left
// to Compute.
func (p params) parameters() (*vhacd.Parameters, error) {
	out := vhacd.DefaultParameters()
	out.Concavity = p.Concavity
	out.Alpha = p.Alpha
	out.Beta = p.Beta
	out.MinVolumePerCH = p.MinVolumePerCH
	out.Resolution = p.Resolution
	out.MaxNumVerticesPerCH = p.MaxNumVerticesPerCH
	out.PlaneDownsampling = p.PlaneDownsampling
	out.ConvexHullDownsampling = p.ConvexHullDownsampling
	out.PCA = p.PCA != 0
	out.ConvexHullApproximation = p.ConvexHullApproximation != 0
	out.OCLAcceleration = p.OCLAcceleration != 0
	out.MaxConvexHulls = p.MaxConvexHulls
	out.ProjectHullVertices = p.ProjectHullVertices
	out.Async = p.Async

	switch p.Mode {
	case 0:
		out.Mode = vhacd.ModeVoxel
	case 1:
		out.Mode = vhacd.ModeTetrahedron
	default:
		return nil, fmt.Errorf("%w: %d", vhacd.ErrUnexpectedMode, p.Mode)
	}

	if p.Callback != 0 {
		cb, ok := vhacd.LookupCallback(p.Callback)
		if !ok {
			return nil, fmt.Errorf("callback %d: %w", p.Callback, vhacd.ErrProxyFreed)
		}
		out.Callback = cb
	}
	if p.Logger != 0 {
		lg, ok := vhacd.LookupLogger(p.Logger)
		if !ok {
			return nil, fmt.Errorf("logger %d: %w", p.Logger, vhacd.ErrProxyFreed)
		}
		out.Logger = lg
	}
	return out, nil
}

// hullBuffers holds the C copies of one hull handed out by
// VHACD_GetConvexHull.
type hullBuffers struct {
	points    unsafe.Pointer
	triangles unsafe.Pointer
}

// freeBuffer releases memory allocated for hullBuffers. cgo builds replace
// it with C.free.
var freeBuffer = func(unsafe.Pointer) {}

// session is what a C session handle refers to. Hull copies stay valid until
// the next Compute, Clean or Release of the session.
type session struct {
	s *vhacd.Session

	mu      sync.Mutex
	buffers map[uint32]hullBuffers
}

var (
	logOnce sync.Once
	logger  logging.Logger
)

// sessionLogger logs to stderr through zap when VHACD_LOG names a level.
func sessionLogger() logging.Logger {
	logOnce.Do(func() {
		logger = logging.Nop()
		name := os.Getenv("VHACD_LOG")
		if name == "" {
			return
		}
		level, err := zapcore.ParseLevel(name)
		if err != nil {
			level = zapcore.DebugLevel
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		z, err := cfg.Build()
		if err != nil {
			return
		}
		logger = logging.NewZap(z.Named("libvhacd"))
	})
	return logger
}

func newSession() uintptr {
	cs := &session{s: vhacd.NewSession(vhacd.Config{Logger: sessionLogger()})}
	return uintptr(backend.Put(cs))
}

func lookupSession(h uintptr) (*session, bool) {
	v, ok := backend.Get(backend.Handle(h))
	if !ok {
		return nil, false
	}
	cs, ok := v.(*session)
	return cs, ok
}

func (cs *session) dropBuffers() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, b := range cs.buffers {
		freeBuffer(b.points)
		freeBuffer(b.triangles)
	}
	cs.buffers = nil
}

// hull returns hull index together with its C copy, allocating the copy with
// alloc on first use.
func (cs *session) hull(index uint32, alloc func(vhacd.ConvexHull) hullBuffers) (vhacd.ConvexHull, hullBuffers, error) {
	h, err := cs.s.ConvexHull(index)
	if err != nil {
		return vhacd.ConvexHull{}, hullBuffers{}, err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b, ok := cs.buffers[index]
	if !ok {
		b = alloc(h)
		if cs.buffers == nil {
			cs.buffers = make(map[uint32]hullBuffers)
		}
		cs.buffers[index] = b
	}
	return h, b, nil
}

func releaseSession(h uintptr) error {
	cs, ok := lookupSession(h)
	if !ok {
		return vhacd.ErrSessionReleased
	}
	err := cs.s.Release()
	cs.dropBuffers()
	if derr := backend.Delete(backend.Handle(h)); err == nil {
		err = derr
	}
	return err
}

// freeProxy frees the callback or logger proxy registered under h.
func freeProxy(h uintptr) error {
	if cb, ok := vhacd.LookupCallback(h); ok {
		return cb.Free()
	}
	if lg, ok := vhacd.LookupLogger(h); ok {
		return lg.Free()
	}
	return vhacd.ErrProxyFreed
}
