// Package backend keeps the process wide table of live handles shared by the
// Go API and the C ABI. Every value handed across the boundary (sessions,
// progress proxies, logger proxies) is stored here under an opaque integer
// handle, so foreign code never holds a Go pointer.
package backend

import (
	"errors"
	"sync"
)

var (
	// ErrUnknownHandle reports a handle that was never issued or was deleted.
	ErrUnknownHandle = errors.New("backend: unknown handle")

	// ErrHandleInUse reports a delete of a handle that is still retained.
	ErrHandleInUse = errors.New("backend: handle in use")
)

// Handle identifies a registered value. The zero Handle is never issued.
type Handle uintptr

type entry struct {
	v    any
	refs int
}

var (
	mu   sync.Mutex
	next Handle = 1
	reg         = map[Handle]*entry{}
)

// Put registers v and returns its handle.
func Put(v any) Handle {
	mu.Lock()
	h := next
	next++
	reg[h] = &entry{v: v}
	mu.Unlock()
	return h
}

// Get returns the value registered under h.
func Get(h Handle) (any, bool) {
	mu.Lock()
	e, ok := reg[h]
	mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.v, true
}

// Retain marks h as used by another registered value. A retained handle
// cannot be deleted until every Retain is matched by Unretain.
func Retain(h Handle) error {
	mu.Lock()
	defer mu.Unlock()
	e, ok := reg[h]
	if !ok {
		return ErrUnknownHandle
	}
	e.refs++
	return nil
}

// Unretain releases one Retain on h. Unknown handles are ignored.
func Unretain(h Handle) {
	mu.Lock()
	if e, ok := reg[h]; ok && e.refs > 0 {
		e.refs--
	}
	mu.Unlock()
}

// Delete removes h from the table.
func Delete(h Handle) error {
	mu.Lock()
	defer mu.Unlock()
	e, ok := reg[h]
	if !ok {
		return ErrUnknownHandle
	}
	if e.refs > 0 {
		return ErrHandleInUse
	}
	delete(reg, h)
	return nil
}

// Len returns the number of live handles. Tests use it to detect leaks.
func Len() int {
	mu.Lock()
	defer mu.Unlock()
	return len(reg)
}
