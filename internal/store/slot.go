package store

import (
	"encoding/json"

	"github.com/abgdnv/storefront/internal/resource"
)

// flight is one outstanding fetch of a resource.
type flight struct {
	done    chan struct{}
	watched bool
	userID  string

	prevStatus resource.Status
	prevErr    error
}

// fetchSlot is the type-erased view of a slot the fetch loop works with.
// All methods are called with the store lock held.
type fetchSlot interface {
	path() string
	inFlight() *flight
	start(f *flight)
	succeed(raw json.RawMessage) error
	fail(err error)
	discard(f *flight)
	reset()
}

type slot[T any] struct {
	endpoint string
	decode   func(json.RawMessage) ([]T, error)
	state    resource.State[T]
	current  *flight
}

func newSlot[T any](endpoint string, decode func(json.RawMessage) ([]T, error)) *slot[T] {
	return &slot[T]{
		endpoint: endpoint,
		decode:   decode,
		state:    resource.State[T]{Items: []T{}, Status: resource.Idle},
	}
}

func (s *slot[T]) path() string {
	return s.endpoint
}

func (s *slot[T]) inFlight() *flight {
	return s.current
}

func (s *slot[T]) start(f *flight) {
	f.prevStatus = s.state.Status
	f.prevErr = s.state.Err
	s.current = f
	s.state = FetchStarted(s.state)
}

func (s *slot[T]) succeed(raw json.RawMessage) error {
	items, err := s.decode(raw)
	if err != nil {
		return err
	}
	s.current = nil
	s.state = FetchSucceeded(s.state, items)
	return nil
}

func (s *slot[T]) fail(err error) {
	s.current = nil
	s.state = FetchFailed(s.state, err)
}

func (s *slot[T]) discard(f *flight) {
	if s.current != f {
		return
	}
	s.current = nil
	s.state = FetchDiscarded(s.state, f.prevStatus, f.prevErr)
}

func (s *slot[T]) reset() {
	s.current = nil
	s.state = Reset(s.state)
}
