// Package inflight allows one outstanding submission per form.
package inflight

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when a submission is already in progress.
var ErrBusy = errors.New("request already in progress")

// Lock guards one submission affordance.
type Lock struct {
	sem *semaphore.Weighted
}

// New creates an unlocked Lock.
func New() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the lock without waiting. On success the returned release
// function must be called exactly once; further calls are ignored.
func (l *Lock) TryAcquire() (release func(), err error) {
	if !l.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(func() { l.sem.Release(1) }) }, nil
}

// Do runs fn while holding the lock, or returns ErrBusy immediately.
func (l *Lock) Do(fn func() error) error {
	release, err := l.TryAcquire()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Set holds one Lock per named affordance.
type Set struct {
	mu    sync.Mutex
	locks map[string]*Lock
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{locks: make(map[string]*Lock)}
}

// Get returns the lock for name, creating it on first use.
func (s *Set) Get(name string) *Lock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = New()
		s.locks[name] = lock
	}
	return lock
}
