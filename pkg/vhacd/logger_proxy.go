package vhacd

import (
	"github.com/hsiuhsiu/vhacd-go/internal/backend"
)

// LogFunc receives one engine log message.
type LogFunc func(msg string)

// LoggerProxy is a registered engine message sink, bound to a session through
// Parameters.Logger. Same ownership rules as CallbackProxy.
type LoggerProxy struct {
	h  backend.Handle
	fn LogFunc
}

func CreateUserLogger(fn LogFunc) (*LoggerProxy, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	p := &LoggerProxy{fn: fn}
	p.h = backend.Put(p)
	return p, nil
}

func FreeUserLogger(p *LoggerProxy) error {
	if p == nil {
		return nil
	}
	return remapProxyError(backend.Delete(p.h))
}

func (p *LoggerProxy) Free() error { return FreeUserLogger(p) }

func (p *LoggerProxy) Handle() uintptr { return uintptr(p.h) }

// LookupLogger returns the live proxy registered under h.
func LookupLogger(h uintptr) (*LoggerProxy, bool) {
	v, ok := backend.Get(backend.Handle(h))
	if !ok {
		return nil, false
	}
	p, ok := v.(*LoggerProxy)
	return p, ok
}

func (p *LoggerProxy) log(msg string) { p.fn(msg) }
