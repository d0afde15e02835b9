package pool

// GetWorkerForUser returns the worker id the hash ring maps userID to,
// without reading or mutating the routing cache. A cached or
// force-assigned worker that differs from the ring lookup is not
// reported.
func (s *Supervisor) GetWorkerForUser(userID string) (string, bool) {
	return s.router.Peek(userID)
}
