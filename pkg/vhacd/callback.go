package vhacd

import (
	"math"

	"github.com/hsiuhsiu/vhacd-go/internal/backend"
)

// ProgressFunc receives progress updates. The three fractions are in
// [0, 1]; stageName and operationName describe what the engine is doing.
type ProgressFunc func(userData any, overall, stage, operation float64, stageName, operationName string)

// CallbackProxy is a registered progress callback. It is bound to a session
// through Parameters.Callback and must be freed exactly once, after no
// session binds it any more.
type CallbackProxy struct {
	h        backend.Handle
	userData any
	fn       ProgressFunc
}

// CreateUserCallback registers fn. userData is passed back on every call.
func CreateUserCallback(userData any, fn ProgressFunc) (*CallbackProxy, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	p := &CallbackProxy{userData: userData, fn: fn}
	p.h = backend.Put(p)
	return p, nil
}

// FreeUserCallback unregisters p. It returns ErrProxyInUse while a session
// binds p and ErrProxyFreed when p was already freed. A nil p is a no-op.
func FreeUserCallback(p *CallbackProxy) error {
	if p == nil {
		return nil
	}
	return remapProxyError(backend.Delete(p.h))
}

// Free is shorthand for FreeUserCallback(p).
func (p *CallbackProxy) Free() error { return FreeUserCallback(p) }

// Handle returns the registry key of p, as handed across the C ABI.
func (p *CallbackProxy) Handle() uintptr { return uintptr(p.h) }

// LookupCallback returns the live proxy registered under h.
func LookupCallback(h uintptr) (*CallbackProxy, bool) {
	v, ok := backend.Get(backend.Handle(h))
	if !ok {
		return nil, false
	}
	p, ok := v.(*CallbackProxy)
	return p, ok
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}

func (p *CallbackProxy) update(overall, stage, operation float64, stageName, operationName string) {
	p.fn(p.userData, clampUnit(overall), clampUnit(stage), clampUnit(operation), stageName, operationName)
}
