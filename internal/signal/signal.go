// Package signal carries named external events (connectivity, visibility,
// exit intent) to observers that react to them.
package signal

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Name identifies a signal source.
type Name string

const (
	Connectivity Name = "connectivity"
	Visibility   Name = "visibility"
	ExitIntent   Name = "exit_intent"
)

// Event is one observation of a signal. Value is true for online,
// visible, or intent detected.
type Event struct {
	Name  Name
	Value bool
}

// Observer reacts to signals.
type Observer interface {
	OnSignal(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnSignal(ctx context.Context, ev Event) { f(ctx, ev) }

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	observers map[Name][]Observer
	logger    zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{observers: make(map[Name][]Observer), logger: logger}
}

// Subscribe registers o for events named name.
func (b *Bus) Subscribe(name Name, o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers[name] = append(b.observers[name], o)
}

// Publish delivers ev to every observer of ev.Name. A panicking observer is
// logged and does not stop delivery to the rest.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	observers := append([]Observer(nil), b.observers[ev.Name]...)
	b.mu.RUnlock()

	for _, o := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error().Interface("panic", r).Str("signal", string(ev.Name)).Msg("signal observer panicked")
				}
			}()
			o.OnSignal(ctx, ev)
		}()
	}
}
