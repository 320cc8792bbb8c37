package trace

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
)

// Listener observes newly emitted events.
type Listener interface {
	OnEvent(ev core.TraceEvent)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev core.TraceEvent)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(ev core.TraceEvent) { f(ev) }

// Options configures a Collector.
type Options struct {
	// Listeners are registered in order at construction time.
	Listeners []Listener
	// Logger receives listener failures. Defaults to a no-op logger.
	Logger logging.Logger
}

// Collector is the append-only event log of a single run.
type Collector struct {
	mu        sync.RWMutex
	events    []core.TraceEvent
	listeners []Listener
	start     time.Time
	logger    logging.Logger
}

// New creates an empty collector.
func New(optFns ...func(o *Options)) *Collector {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Collector{
		events:    []core.TraceEvent{},
		listeners: append([]Listener{}, opts.Listeners...),
		start:     time.Now(),
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Emit creates an event, appends it and notifies listeners in registration
// order. The created event is returned.
func (c *Collector) Emit(typ core.EventType, data map[string]any) core.TraceEvent {
	ev := core.NewTraceEvent(typ, data)

	c.mu.Lock()
	c.events = append(c.events, ev)
	listeners := append([]Listener{}, c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		c.notify(l, ev)
	}

	return ev
}

func (c *Collector) notify(l Listener, ev core.TraceEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("trace.listener.panic", "event_type", string(ev.Type), "panic", fmt.Sprint(r))
		}
	}()
	l.OnEvent(ev)
}

// AddListener registers a listener for subsequently emitted events.
func (c *Collector) AddListener(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Events returns a copy of the recorded events in emission order.
func (c *Collector) Events() []core.TraceEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.TraceEvent{}, c.events...)
}

// Len returns the number of recorded events.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Restore replaces the recorded events with previously persisted ones.
// Listeners are not notified.
func (c *Collector) Restore(events []core.TraceEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append([]core.TraceEvent{}, events...)
}

// StartTime returns the collector creation time.
func (c *Collector) StartTime() time.Time { return c.start }

// DumpJSON renders all events as an indented JSON array.
func (c *Collector) DumpJSON() (string, error) {
	b, err := json.MarshalIndent(c.Events(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trace events: %w", err)
	}
	return string(b), nil
}
