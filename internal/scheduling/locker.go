package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrLockUnavailable is returned when a resource-day lock could not be taken
// before the context expired.
var ErrLockUnavailable = errors.New("resource lock unavailable")

// Locker serialises commits and cancellations per resource-day.
type Locker interface {
	// Acquire takes every key in (kind, id, date) order and returns a
	// release func that must be called exactly once.
	Acquire(ctx context.Context, keys []ResourceKey) (func(), error)
}

// OrderKeys de-duplicates keys and sorts them into lock order.
func OrderKeys(keys []ResourceKey) []ResourceKey {
	seen := make(map[ResourceKey]struct{}, len(keys))
	out := make([]ResourceKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker is an in-process Locker with one mutex per live resource-day.
// Entries are reference counted and dropped once no caller holds or waits on them.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[ResourceKey]*keyLock
}

// NewMemoryLocker constructs a MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[ResourceKey]*keyLock)}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, keys []ResourceKey) (func(), error) {
	ordered := OrderKeys(keys)
	held := make([]*keyLock, 0, len(ordered))
	heldKeys := make([]ResourceKey, 0, len(ordered))

	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].sem
			l.unref(heldKeys[i])
		}
	}

	for _, key := range ordered {
		kl := l.ref(key)
		select {
		case kl.sem <- struct{}{}:
			held = append(held, kl)
			heldKeys = append(heldKeys, key)
		case <-ctx.Done():
			l.unref(key)
			releaseHeld()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, key, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

// Held returns the number of resource-days currently tracked.
func (l *MemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *MemoryLocker) ref(key ResourceKey) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *MemoryLocker) unref(key ResourceKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs <= 0 {
		delete(l.locks, key)
	}
}
