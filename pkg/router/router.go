// Package router implements the sticky consistent-hash router: a hash
// ring of worker identifiers plus a caching layer that pins a user
// identifier to whichever worker first served it, for as long as that
// worker remains registered.
package router

import (
	"sync"

	"github.com/cuemby/moltpool/pkg/hashring"
)

// Assignment is the result of a routing decision.
type Assignment struct {
	WorkerID        string
	UserID          string
	HashValue       uint32
	IsNewAssignment bool
}

// Router owns the worker set, the hash ring, and the sticky assignment
// cache. The zero value is not usable; construct with New.
type Router struct {
	mu    sync.RWMutex
	ring  *hashring.Ring
	cache map[string]string // userID -> workerID
}

// New creates an empty Router with the given virtual-node count. A
// virtualNodes of 0 or less falls back to hashring.DefaultVirtualNodes.
func New(virtualNodes int) *Router {
	return &Router{
		ring:  hashring.New(virtualNodes),
		cache: make(map[string]string),
	}
}

// VirtualNodes returns the ring's configured virtual-node count.
func (r *Router) VirtualNodes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.VirtualNodes()
}

// AddWorker registers workerID on the ring. Idempotent. Existing cached
// assignments are left untouched — stickiness wins over rebalance.
func (r *Router) AddWorker(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring.Add(workerID)
}

// RemoveWorker deregisters workerID and purges every cache entry that
// pointed to it. Idempotent.
func (r *Router) RemoveWorker(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ring.Remove(workerID)
	for userID, w := range r.cache {
		if w == workerID {
			delete(r.cache, userID)
		}
	}
}

// Route resolves userID to a worker id. If userID is already cached and
// the cached worker is still registered, that worker is returned with
// IsNewAssignment=false. Otherwise a ring lookup is performed, the
// result is cached, and IsNewAssignment is true.
func (r *Router) Route(userID string) (Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash := hashring.FNV1a(userID)

	if cached, ok := r.cache[userID]; ok && r.ring.Has(cached) {
		return Assignment{
			WorkerID:        cached,
			UserID:          userID,
			HashValue:       hash,
			IsNewAssignment: false,
		}, nil
	}

	workerID, ok := r.ring.Lookup(hash)
	if !ok {
		return Assignment{}, ErrNoWorkersAvailable
	}

	r.cache[userID] = workerID
	return Assignment{
		WorkerID:        workerID,
		UserID:          userID,
		HashValue:       hash,
		IsNewAssignment: true,
	}, nil
}

// Peek performs a non-caching ring lookup: it neither reads nor writes
// the assignment cache. ok is false when the ring is empty.
func (r *Router) Peek(userID string) (workerID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.Lookup(hashring.FNV1a(userID))
}

// ForceAssign installs a cache entry bypassing the ring. It fails with
// ErrUnknownWorker if workerID is not registered.
func (r *Router) ForceAssign(userID, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ring.Has(workerID) {
		return ErrUnknownWorker
	}
	r.cache[userID] = workerID
	return nil
}

// ClearAssignment purges the cache entry for userID, if any.
func (r *Router) ClearAssignment(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, userID)
}

// ClearCache purges every cache entry.
func (r *Router) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]string)
}

// CacheSize returns the number of cached user->worker assignments.
func (r *Router) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Workers returns the currently registered worker ids in unspecified
// order.
func (r *Router) Workers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.Workers()
}
