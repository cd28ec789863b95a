package service

import "sync"

// Action is a state transition request handled by a reducer.
type Action interface{}

// Reducer maps a state and an action to the next state. It must be pure and
// must not mutate the slices or maps of its input.
type Reducer[S any] func(state S, action Action) S

// Listener observes a committed transition.
type Listener[S any] func(prev, next S)

// Store is a single-writer state container: every mutation goes through
// Dispatch, which runs the reducer and then notifies listeners while holding
// the store lock, so listeners see transitions in dispatch order. A listener
// must not dispatch synchronously into the store that notified it.
type Store[S any] struct {
	mu        sync.Mutex
	state     S
	reduce    Reducer[S]
	listeners map[int]Listener[S]
	nextID    int
}

// NewStore creates a Store holding initial.
func NewStore[S any](initial S, reduce Reducer[S]) *Store[S] {
	return &Store[S]{
		state:     initial,
		reduce:    reduce,
		listeners: make(map[int]Listener[S]),
	}
}

// State returns the current snapshot.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a to the state and returns the new snapshot.
func (s *Store[S]) Dispatch(a Action) S {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = s.reduce(prev, a)
	for _, id := range s.order() {
		s.listeners[id](prev, s.state)
	}
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store[S]) Subscribe(l Listener[S]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// order returns listener ids in registration order.
func (s *Store[S]) order() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if _, ok := s.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
