// Package events is an in-memory, non-blocking pub/sub broker used by
// the pool to publish worker and request lifecycle events to
// observers. Publish never blocks on a slow subscriber: full
// subscriber buffers drop the event rather than stall the broadcaster.
package events
