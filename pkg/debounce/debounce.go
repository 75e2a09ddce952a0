// Package debounce turns a rapidly changing input into a settled value.
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/academy-portal/pkg/pubsub"
)

// DefaultWindow is the quiescence period used when none is configured.
const DefaultWindow = 500 * time.Millisecond

// Options configures a State.
type Options struct {
	Window   time.Duration
	Clock    Clock
	Initial  string
	OnSettle func(settled string)
}

// State keeps the raw value, updated on every keystroke, and the settled value,
// updated once the window elapses with no further input.
type State struct {
	mu       sync.Mutex
	window   time.Duration
	clock    Clock
	raw      string
	settled  string
	timer    Timer
	gen      uint64
	closed   bool
	onSettle func(string)
	broker   *pubsub.Broker[string]
}

// New creates a debounced state.
func New(opts Options) *State {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	return &State{
		window:   opts.Window,
		clock:    opts.Clock,
		raw:      opts.Initial,
		settled:  opts.Initial,
		onSettle: opts.OnSettle,
		broker:   pubsub.NewBroker[string](),
	}
}

// Set records a keystroke and restarts the window.
func (s *State) Set(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.raw = value
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.window, func() { s.settle(gen) })
}

// Flush settles the current raw value immediately.
func (s *State) Flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.settle(gen)
}

func (s *State) settle(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.settled == s.raw {
		s.mu.Unlock()
		return
	}
	s.settled = s.raw
	value := s.settled
	cb := s.onSettle
	s.mu.Unlock()

	if cb != nil {
		cb(value)
	}
	s.broker.Publish(pubsub.SettledEvent, value)
}

// Raw returns the latest keystroke value.
func (s *State) Raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Settled returns the last settled value.
func (s *State) Settled() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Pending reports whether a settle is scheduled.
func (s *State) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Subscribe streams settled values until ctx is done or the state closes.
func (s *State) Subscribe(ctx context.Context) <-chan pubsub.Event[string] {
	return s.broker.Subscribe(ctx)
}

// Close cancels the pending window. No settle fires afterwards.
func (s *State) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.broker.Close()
}
