package client

import (
	"log/slog"
	"sync"
)

type registration struct {
	id uint64
	fn Handler
}

// bus is the client-side event registry. Handlers for one event run in
// registration order; a panicking handler is isolated so the rest still run.
type bus struct {
	mu       sync.Mutex
	seq      uint64
	handlers map[Event][]registration
	logger   *slog.Logger
}

func newBus(logger *slog.Logger) *bus {
	return &bus{handlers: make(map[Event][]registration), logger: logger}
}

// on registers fn and returns an unsubscribe func removing exactly this
// registration. Calling it twice, or after the connection is gone, is a no-op.
func (b *bus) on(event Event, fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.handlers[event] = append(b.handlers[event], registration{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		regs := b.handlers[event]
		for i, reg := range regs {
			if reg.id == id {
				b.handlers[event] = append(regs[:i:i], regs[i+1:]...)
				break
			}
		}
		if len(b.handlers[event]) == 0 {
			delete(b.handlers, event)
		}
	}
}

func (b *bus) dispatch(event Event, msg *Message) {
	b.mu.Lock()
	regs := make([]registration, len(b.handlers[event]))
	copy(regs, b.handlers[event])
	b.mu.Unlock()

	for _, reg := range regs {
		b.invoke(event, reg, msg)
	}
}

func (b *bus) invoke(event Event, reg registration, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event handler panic", slog.String("event", string(event)), slog.Any("error", r))
		}
	}()
	reg.fn(msg)
}
