package goSession

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// eventDispatcher hands session events to the sink on a single worker so
// the sink sees them in emission order and never runs on the manager queue.
type eventDispatcher struct {
	sink       EventSink
	dropIfFull bool
	logger     zerolog.Logger

	// mu guards sends on queue against the close in Close.
	mu      sync.RWMutex
	closed  bool
	queue   chan SessionEvent
	stopped chan struct{}
	dropped atomic.Uint64
}

func newEventDispatcher(cfg EventsConfig, sink EventSink, logger zerolog.Logger) *eventDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &eventDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger: logger.With().Str("component", "events").Logger().
			Sample(&zerolog.BurstSampler{Burst: 1, Period: time.Minute}),
		queue:   make(chan SessionEvent, size),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *eventDispatcher) run() {
	defer close(d.stopped)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *eventDispatcher) deliver(event SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("event_type", event.EventType).Msg("event sink panicked")
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull a full buffer drops the event and
// counts it; otherwise Emit blocks until there is room or ctx ends.
func (d *eventDispatcher) Emit(ctx context.Context, event SessionEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event)
	}
}

// TryEmit queues event without waiting, whatever DropIfFull says.
func (d *eventDispatcher) TryEmit(event SessionEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- event:
	default:
		d.drop(event)
	}
}

func (d *eventDispatcher) drop(event SessionEvent) {
	n := d.dropped.Add(1)
	d.logger.Warn().Str("event_type", event.EventType).Uint64("dropped", n).Msg("session event dropped")
}

// Close stops accepting events, delivers what is queued and waits for the
// worker to finish.
func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
