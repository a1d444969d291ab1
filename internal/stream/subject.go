// Package stream provides a hot, replaying broadcast value.
//
// A Subject holds the last published value. New subscribers receive it
// immediately; later values are pushed to every live subscriber in
// publish order. Publishing a value equal to the current one is
// suppressed, so observers never see the same value twice in a row.
//
// Each subscriber owns an unbounded queue drained by its own goroutine,
// so a slow reader never blocks the publisher.
package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by First when the subject closes before a match.
var ErrClosed = errors.New("stream closed")

// Subject is a replay-last, distinct-until-changed broadcast cell.
type Subject[T comparable] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]*subscriber[T]
	nextID uint64
	closed bool
}

// NewSubject returns a subject seeded with initial.
func NewSubject[T comparable](initial T) *Subject[T] {
	return &Subject[T]{
		value: initial,
		subs:  make(map[uint64]*subscriber[T]),
	}
}

// Value returns the most recently published value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish stores v and fans it out. It reports false when v equals the
// current value (nothing is emitted) or the subject is closed.
func (s *Subject[T]) Publish(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || v == s.value {
		return false
	}
	s.value = v
	for _, sub := range s.subs {
		sub.push(v)
	}
	return true
}

// Subscribe registers a subscriber. The returned channel first yields the
// current value. The cancel func is idempotent; the channel is closed once
// the subscriber is cancelled or the subject closes.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	sub := newSubscriber[T]()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.stop()
		go sub.pump()
		return sub.out, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	sub.push(s.value)
	s.mu.Unlock()

	go sub.pump()

	return sub.out, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}
}

// Subscribers reports the number of live subscribers.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close stops every subscriber. Further publishes are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[uint64]*subscriber[T])
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

// First blocks until a value satisfying match is observed (including the
// current value) and returns it.
func First[T comparable](ctx context.Context, s *Subject[T], match func(T) bool) (T, error) {
	ch, cancel := s.Subscribe()
	defer cancel()

	var zero T
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return zero, ErrClosed
			}
			if match(v) {
				return v, nil
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

type subscriber[T any] struct {
	mu       sync.Mutex
	pending  []T
	wake     chan struct{}
	out      chan T
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
		done: make(chan struct{}),
	}
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.pending = append(s.pending, v)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *subscriber[T]) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, v := range batch {
			select {
			case s.out <- v:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
