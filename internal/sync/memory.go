package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// MemoryRemote is an in-process Remote used by tests and offline
// development. Notifications are delivered synchronously to every
// subscriber, including the pusher's own: like the real store, a device
// hears its own writes.
type MemoryRemote struct {
	mu      sync.Mutex
	docs    map[string]entity.Snapshot
	subs    map[string]map[int]func(entity.Snapshot)
	nextSub int
}

// NewMemoryRemote returns an empty in-memory document store.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		docs: make(map[string]entity.Snapshot),
		subs: make(map[string]map[int]func(entity.Snapshot)),
	}
}

// Pull implements Remote.
func (r *MemoryRemote) Pull(ctx context.Context, userID string) (entity.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return entity.Snapshot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.docs[userID]
	if !ok {
		return entity.Snapshot{}, fmt.Errorf("%w: %s", entity.ErrSnapshotNotFound, userID)
	}
	return snap.Clone(), nil
}

// Push implements Remote.
func (r *MemoryRemote) Push(ctx context.Context, snap entity.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.docs[snap.UserID] = snap.Clone()
	var fns []func(entity.Snapshot)
	for _, fn := range r.subs[snap.UserID] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snap.Clone())
	}
	return nil
}

// Subscribe implements Remote.
func (r *MemoryRemote) Subscribe(ctx context.Context, userID string, fn func(entity.Snapshot)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[userID] == nil {
		r.subs[userID] = make(map[int]func(entity.Snapshot))
	}
	id := r.nextSub
	r.nextSub++
	r.subs[userID][id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[userID], id)
	}, nil
}
