package vhacd

import (
	"errors"
	"fmt"

	"github.com/hsiuhsiu/vhacd-go/internal/backend"
)

var (
	// ErrInvalidInput reports a mesh that cannot be decomposed: mismatched
	// counts, indices out of range, non finite coordinates or no enclosed
	// volume.
	ErrInvalidInput = errors.New("vhacd: invalid input")

	// ErrComputeFailed reports an engine run that aborted or produced no hull.
	ErrComputeFailed = errors.New("vhacd: compute failed")

	// ErrCancelled reports a run stopped by Cancel, Clean or Release.
	ErrCancelled = errors.New("vhacd: cancelled")

	ErrSessionReleased          = errors.New("vhacd: session released")
	ErrComputeInFlight          = errors.New("vhacd: compute already in flight")
	ErrNotReady                 = errors.New("vhacd: results not ready")
	ErrIndexOutOfRange          = errors.New("vhacd: hull index out of range")
	ErrResultsStale             = errors.New("vhacd: result set is stale")
	ErrParametersNotInitialized = errors.New("vhacd: parameters not initialized, use DefaultParameters")
	ErrInvalidParameter         = errors.New("vhacd: invalid parameter")
	ErrUnexpectedMode           = errors.New("vhacd: unexpected mode")

	ErrNilFunc    = errors.New("vhacd: nil function")
	ErrProxyFreed = errors.New("vhacd: proxy already freed")
	ErrProxyInUse = errors.New("vhacd: proxy bound to a session")
)

// OpError records the session operation that failed.
type OpError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("vhacd.%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// remapProxyError converts registry errors into the proxy error taxonomy.
func remapProxyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrUnknownHandle):
		return ErrProxyFreed
	case errors.Is(err, backend.ErrHandleInUse):
		return ErrProxyInUse
	}
	return err
}
