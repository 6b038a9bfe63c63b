package usecase

import (
	"context"
	"fmt"
	"sync"
)

// KeyedLocker provides operation-level mutual exclusion per key. The
// ingestor uses it to serialize rebuilds of the same bot's knowledge base
// while rebuilds for different bots proceed in parallel.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

type keyedMutex struct {
	mu       sync.Mutex
	refCount int
}

// NewKeyedLocker creates a new keyed locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		locks: make(map[string]*keyedMutex),
	}
}

// Lock acquires the lock for the given key. It blocks until the lock is
// acquired or the context is cancelled. Returns an unlock function that
// MUST be called when the operation is complete.
func (kl *KeyedLocker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	if !ok {
		km = &keyedMutex{}
		kl.locks[key] = km
	}
	km.refCount++
	kl.mu.Unlock()

	// Try to acquire the keyed mutex with context cancellation support.
	acquired := make(chan struct{})
	go func() {
		km.mu.Lock()
		close(acquired)
	}()

	release := func() {
		km.mu.Unlock()
		kl.mu.Lock()
		km.refCount--
		if km.refCount == 0 {
			delete(kl.locks, key)
		}
		kl.mu.Unlock()
	}

	select {
	case <-acquired:
		return release, nil
	case <-ctx.Done():
		// Context cancelled before the lock was acquired. Wait for the
		// goroutine to finish acquiring, then release immediately so the
		// lock is never held forever.
		go func() {
			<-acquired
			release()
		}()
		return nil, fmt.Errorf("keyed lock: %w", ctx.Err())
	}
}

// ActiveCount returns the number of keys with active or pending locks.
// Intended for testing.
func (kl *KeyedLocker) ActiveCount() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
