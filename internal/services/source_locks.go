package services

import (
	"context"
	"sync"
)

type sourceLock struct {
	ch   chan struct{}
	refs int
}

// sourceLocks is a keyed semaphore. Holders of different keys never contend,
// and a key's entry lives only while someone holds or waits for it.
type sourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sourceLock
}

func newSourceLocks() *sourceLocks {
	return &sourceLocks{locks: make(map[string]*sourceLock)}
}

// acquire blocks until key is free or ctx is done.
func (l *sourceLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[key]
	if !ok {
		sl = &sourceLock{ch: make(chan struct{}, 1)}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-sl.ch
				l.drop(key, sl)
			})
		}, nil
	case <-ctx.Done():
		l.drop(key, sl)
		return nil, ctx.Err()
	}
}

func (l *sourceLocks) drop(key string, sl *sourceLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *sourceLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
