// Package logging provides a minimal logging facade for decomposition
// sessions.
//
// This package defines a Logger interface that wraps a subset of the standard
// library's log/slog functionality. The interface is intentionally small to
// allow applications to provide custom implementations for testing or
// integration with existing logging systems.
//
// # Logger Interface
//
// The Logger interface provides context-aware logging methods:
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// # Implementations
//
// Three implementations are provided:
//
//	// slog backed; nil binds to slog.Default()
//	logger := logging.New(nil)
//
//	// zap backed, through zap's sugared logger
//	z, _ := zap.NewDevelopment()
//	logger = logging.NewZap(z)
//
//	// discards everything; the session default
//	logger = logging.Nop()
//
// # Session Messages
//
// A session logs its lifecycle (compute start, completion, cancellation,
// release) at Info and Debug level. Engine messages go to the user logger
// proxy bound through the parameters when there is one, and to the session
// Logger at Debug level otherwise.
package logging
