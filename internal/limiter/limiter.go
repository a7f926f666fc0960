// Package limiter bounds how many tasks run at once. Callers beyond the
// limit wait in arrival order.
package limiter

import (
	"container/list"
	"context"
	"sync"
)

// DefaultLimit is the number of concurrent network requests used by the
// maintenance engine when nothing else is configured.
const DefaultLimit = 6

// Limiter is a counting semaphore with FIFO admission.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	active  int
	waiters list.List // of chan struct{}
}

// New returns a limiter admitting n holders at once; n below 1 is treated as 1.
func New(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{limit: n}
}

// Acquire blocks until the caller holds a permit or ctx is done.
// Each successful Acquire must be paired with one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.active < l.limit && l.waiters.Len() == 0 {
		l.active++
		l.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	elem := l.waiters.PushBack(ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		defer l.mu.Unlock()
		select {
		case <-ready:
			// Handed a permit while giving up: pass it to the next waiter.
			l.releaseLocked()
		default:
			l.waiters.Remove(elem)
		}
		return ctx.Err()
	}
}

// Release returns a permit. The oldest waiter, if any, takes it over.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
}

func (l *Limiter) releaseLocked() {
	if front := l.waiters.Front(); front != nil {
		l.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	if l.active == 0 {
		panic("limiter: Release without Acquire")
	}
	l.active--
}

// Active reports how many permits are held.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Waiting reports how many callers are parked in Acquire.
func (l *Limiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters.Len()
}

func (l *Limiter) Limit() int { return l.limit }
