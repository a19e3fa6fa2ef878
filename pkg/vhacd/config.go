package vhacd

import (
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/logging"
)

// Config expresses the knobs of a session that do not change between runs.
// The zero value is usable.
type Config struct {
	// Logger receives session lifecycle events, and engine messages when no
	// LoggerProxy is bound. Nil discards them.
	Logger logging.Logger

	// Engine performs the decomposition. Nil selects the default
	// hierarchical engine.
	Engine engine.Engine

	// Name tags every log line of the session. Empty picks a generated name.
	Name string
}

func (c Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Nop()
	}
	return c.Logger
}

func (c Config) engine() engine.Engine {
	if c.Engine == nil {
		return engine.New()
	}
	return c.Engine
}
