// Package store is a small observable container for state shared across
// screens. A Store is created once by the application root and passed to the
// pieces that need it; there is no package level instance.
package store

import (
	"sort"
	"sync"
)

// Listener receives the new state after every change.
type Listener[T any] func(state T)

// Store holds a value of T and notifies subscribers when it changes.
// Listeners run after the lock is released, in subscription order. Changes are
// delivered one at a time in the order they were made: when another goroutine
// is already delivering, Update queues the new state for it and returns.
type Store[T any] struct {
	mu        sync.Mutex
	state     T
	nextID    int
	listeners map[int]Listener[T]

	queue    []change[T]
	draining bool
}

type change[T any] struct {
	state     T
	listeners []Listener[T]
}

// New returns a store seeded with initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		state:     initial,
		listeners: map[int]Listener[T]{},
	}
}

// Get returns the current state.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the state.
func (s *Store[T]) Set(state T) {
	s.Update(func(T) T { return state })
}

// Update applies fn to the current state and stores the result. fn must not
// call back into the store; listeners may.
func (s *Store[T]) Update(fn func(T) T) T {
	if fn == nil {
		return s.Get()
	}
	s.mu.Lock()
	s.state = fn(s.state)
	next := s.state
	drain := false
	if listeners := s.snapshotLocked(); len(listeners) > 0 {
		s.queue = append(s.queue, change[T]{state: next, listeners: listeners})
		if !s.draining {
			s.draining, drain = true, true
		}
	}
	s.mu.Unlock()

	if drain {
		s.drain()
	}
	return next
}

func (s *Store[T]) drain() {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.queue, s.draining = nil, false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = change[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, l := range next.listeners {
			l(next.state)
		}
	}
}

// Subscribe registers fn and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (s *Store[T]) Subscribe(fn Listener[T]) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store[T]) snapshotLocked() []Listener[T] {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
