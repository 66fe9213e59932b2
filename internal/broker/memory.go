package broker

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when using a closed broker.
var ErrClosed = errors.New("broker closed")

// Memory fans events out to subscribers of the same process.
type Memory struct {
	mu     sync.Mutex
	subs   map[chan *Event]struct{}
	closed bool
}

// NewMemory creates an in-process broker.
func NewMemory() *Memory {
	return &Memory{subs: make(map[chan *Event]struct{})}
}

// Publish delivers event to every current subscriber. Full subscribers miss it.
func (m *Memory) Publish(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for ch := range m.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber that lives until ctx is done.
func (m *Memory) Subscribe(ctx context.Context) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	ch := make(chan *Event, subscriberBuffer)
	m.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		m.remove(ch)
	}()

	return ch, nil
}

func (m *Memory) remove(ch chan *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
}

// Close closes every subscriber channel.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for ch := range m.subs {
		delete(m.subs, ch)
		close(ch)
	}
	return nil
}
