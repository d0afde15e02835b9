package router

// Entry is a single user->worker cache assignment, as round-tripped by
// ExportState/FromState.
type Entry struct {
	UserID   string
	WorkerID string
}

// State is the serializable snapshot of a Router: its worker set, its
// assignment cache, and the virtual-node count it was built with.
type State struct {
	Workers      []string
	Assignments  []Entry
	VirtualNodes int
}

// ExportState snapshots the router's worker set, cache, and virtual-node
// count for later reconstruction via FromState.
func (r *Router) ExportState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := State{
		Workers:      r.ring.Workers(),
		VirtualNodes: r.ring.VirtualNodes(),
	}
	for userID, workerID := range r.cache {
		state.Assignments = append(state.Assignments, Entry{UserID: userID, WorkerID: workerID})
	}
	return state
}

// FromState rebuilds a Router from a previously exported State. Any
// assignment whose worker is not present in state.Workers is dropped.
func FromState(state State) *Router {
	r := New(state.VirtualNodes)
	for _, workerID := range state.Workers {
		r.ring.Add(workerID)
	}
	for _, e := range state.Assignments {
		if r.ring.Has(e.WorkerID) {
			r.cache[e.UserID] = e.WorkerID
		}
	}
	return r
}
