package vhacd

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/logging"
)

// event is one engine notification: a log message when isLog is set, a
// progress update otherwise.
type event struct {
	isLog bool
	msg   string

	overall, stage, operation float64
	stageName, operationName  string
}

// sinks routes events to the proxies bound for a run. Engine messages fall
// back to the session logger when no LoggerProxy is bound. Once stopped is
// set nothing is delivered.
type sinks struct {
	callback *CallbackProxy
	logger   *LoggerProxy
	fallback logging.Logger
	stopped  atomic.Bool
}

func (k *sinks) deliver(ev event) {
	if k.stopped.Load() {
		return
	}
	switch {
	case ev.isLog && k.logger != nil:
		k.logger.log(ev.msg)
	case ev.isLog:
		k.fallback.Debug(context.Background(), ev.msg, "source", "engine")
	case k.callback != nil:
		k.callback.update(ev.overall, ev.stage, ev.operation, ev.stageName, ev.operationName)
	}
}

// directNotifier delivers on the engine's goroutine. Sync runs use it: the
// engine runs on the caller's goroutine there.
type directNotifier struct{ k *sinks }

func (n directNotifier) Progress(overall, stage, operation float64, stageName, operationName string) {
	n.k.deliver(event{overall: overall, stage: stage, operation: operation, stageName: stageName, operationName: operationName})
}

func (n directNotifier) Log(msg string) { n.k.deliver(event{isLog: true, msg: msg}) }

// queue buffers events from a background run until IsReady drains them on
// the caller's goroutine.
type queue struct {
	mu     sync.Mutex
	events []event
}

func (q *queue) Progress(overall, stage, operation float64, stageName, operationName string) {
	q.push(event{overall: overall, stage: stage, operation: operation, stageName: stageName, operationName: operationName})
}

func (q *queue) Log(msg string) { q.push(event{isLog: true, msg: msg}) }

func (q *queue) push(ev event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

func (q *queue) drain() []event {
	q.mu.Lock()
	out := q.events
	q.events = nil
	q.mu.Unlock()
	return out
}
