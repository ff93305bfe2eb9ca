// Package lock provides named write locks for record mutation. A single
// writer per record root keeps the manifest tower consistent; the lock
// contract is deliberately small so distributed backends can satisfy it
// later.
package lock

import (
	"context"
	"sync"

	"github.com/moby/locker"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// RecordLock is the conventional lock name guarding the whole record root.
const RecordLock = "record"

// Release returns the lock to the next waiter. Calling it more than once
// is a no-op.
type Release func()

// Locker hands out named locks in strict request order.
type Locker interface {
	// Acquire blocks until the named lock is held or ctx is done.
	Acquire(ctx context.Context, name string) (Release, error)

	// Position reports how many holders and waiters currently queue on
	// name, including the holder. Zero means the lock is free.
	Position(name string) int
}

type ticket chan struct{}

type waitQueue struct {
	// tickets[0] holds the lock; the rest wait in arrival order.
	tickets []ticket
}

// FIFOLocker is an in-process Locker with first-come-first-served
// ordering. Per-name queue mutation is serialized through a named
// meta-lock so unrelated names never contend.
type FIFOLocker struct {
	meta   *locker.Locker
	queues *xsync.MapOf[string, *waitQueue]
}

// New returns an empty FIFOLocker.
func New() *FIFOLocker {
	return &FIFOLocker{
		meta:   locker.New(),
		queues: xsync.NewMapOf[string, *waitQueue](),
	}
}

var _ Locker = (*FIFOLocker)(nil)

func (l *FIFOLocker) Acquire(ctx context.Context, name string) (Release, error) {
	t := make(ticket)

	l.meta.Lock(name)
	q, _ := l.queues.LoadOrCompute(name, func() *waitQueue {
		return &waitQueue{}
	})
	q.tickets = append(q.tickets, t)
	if len(q.tickets) == 1 {
		close(t)
	}
	l.meta.Unlock(name) //nolint:errcheck // held above

	select {
	case <-t:
		var once sync.Once
		release := func() {
			once.Do(func() {
				l.release(name, t)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.abandon(name, t)
		return nil, errdefs.NewE(errdefs.ErrCanceled, ctx.Err())
	}
}

func (l *FIFOLocker) Position(name string) int {
	l.meta.Lock(name)
	defer l.meta.Unlock(name) //nolint:errcheck // held above

	q, ok := l.queues.Load(name)
	if !ok {
		return 0
	}
	return len(q.tickets)
}

// release pops the holder and wakes the next waiter.
func (l *FIFOLocker) release(name string, t ticket) {
	l.meta.Lock(name)
	defer l.meta.Unlock(name) //nolint:errcheck // held above

	q, ok := l.queues.Load(name)
	if !ok || len(q.tickets) == 0 || q.tickets[0] != t {
		return
	}
	q.tickets = q.tickets[1:]
	if len(q.tickets) == 0 {
		l.queues.Delete(name)
		return
	}
	close(q.tickets[0])
}

// abandon removes a canceled waiter. The ticket may have been granted
// between ctx firing and the meta-lock being taken; the head ticket is
// always granted, so in that case the lock passes straight on.
func (l *FIFOLocker) abandon(name string, t ticket) {
	l.meta.Lock(name)
	defer l.meta.Unlock(name) //nolint:errcheck // held above

	q, ok := l.queues.Load(name)
	if !ok {
		return
	}
	if len(q.tickets) > 0 && q.tickets[0] == t {
		q.tickets = q.tickets[1:]
		if len(q.tickets) > 0 {
			close(q.tickets[0])
		}
	} else {
		for i, waiting := range q.tickets {
			if waiting == t {
				q.tickets = append(q.tickets[:i], q.tickets[i+1:]...)
				break
			}
		}
	}
	if len(q.tickets) == 0 {
		l.queues.Delete(name)
	}
}
