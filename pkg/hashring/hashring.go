// Package hashring implements a consistent-hash ring of virtual nodes
// used by pkg/router to map user identifiers to worker identifiers with
// minimal reshuffling on membership changes.
package hashring

import (
	"sort"
	"strconv"
)

// DefaultVirtualNodes is the number of virtual nodes each worker
// contributes to the ring when a Ring is built without an explicit
// count.
const DefaultVirtualNodes = 150

// node is a single virtual-node entry on the ring, sorted ascending by
// Hash.
type node struct {
	hash        uint32
	workerID    string
	virtualIdx  int
}

// Ring is a sorted hash ring of virtual nodes. It is not safe for
// concurrent use from multiple goroutines; pkg/router serializes all
// access to the ring it owns.
type Ring struct {
	virtualNodes int
	nodes        []node          // sorted ascending by hash
	workers      map[string]bool // set of registered worker ids
}

// New creates an empty ring with the given virtual-node count. A
// virtualNodes of 0 or less falls back to DefaultVirtualNodes.
func New(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	return &Ring{
		virtualNodes: virtualNodes,
		workers:      make(map[string]bool),
	}
}

// VirtualNodes returns the configured virtual-node count.
func (r *Ring) VirtualNodes() int {
	return r.virtualNodes
}

// Len returns the number of registered workers.
func (r *Ring) Len() int {
	return len(r.workers)
}

// Has reports whether workerID is currently registered on the ring.
func (r *Ring) Has(workerID string) bool {
	return r.workers[workerID]
}

// Workers returns the set of registered worker ids in unspecified order.
func (r *Ring) Workers() []string {
	out := make([]string, 0, len(r.workers))
	for id := range r.workers {
		out = append(out, id)
	}
	return out
}

// Add inserts virtualNodes ring entries for workerID. It is idempotent:
// adding an already-registered worker is a no-op.
func (r *Ring) Add(workerID string) {
	if r.workers[workerID] {
		return
	}
	r.workers[workerID] = true

	for i := 0; i < r.virtualNodes; i++ {
		key := virtualNodeKey(workerID, i)
		r.nodes = append(r.nodes, node{
			hash:       FNV1a(key),
			workerID:   workerID,
			virtualIdx: i,
		})
	}

	sort.Slice(r.nodes, func(i, j int) bool {
		return r.nodes[i].hash < r.nodes[j].hash
	})
}

// Remove drops every ring entry for workerID. It is idempotent.
func (r *Ring) Remove(workerID string) {
	if !r.workers[workerID] {
		return
	}
	delete(r.workers, workerID)

	filtered := r.nodes[:0]
	for _, n := range r.nodes {
		if n.workerID != workerID {
			filtered = append(filtered, n)
		}
	}
	r.nodes = filtered
}

// Lookup returns the worker id owning the first ring node whose hash is
// >= the target hash, wrapping around to the lowest-hash node if none
// qualifies. Lookup reports ok=false when the ring has no workers.
func (r *Ring) Lookup(hash uint32) (workerID string, ok bool) {
	if len(r.nodes) == 0 {
		return "", false
	}

	idx := sort.Search(len(r.nodes), func(i int) bool {
		return r.nodes[i].hash >= hash
	})
	if idx == len(r.nodes) {
		idx = 0
	}
	return r.nodes[idx].workerID, true
}

// virtualNodeKey builds the concrete string hashed for a worker's i-th
// virtual node: "<workerId>:<virtualIndex>".
func virtualNodeKey(workerID string, i int) string {
	return workerID + ":" + strconv.Itoa(i)
}
