package metrics

import (
	"time"

	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/pool"
)

// Collector periodically samples a Supervisor's aggregated status and
// publishes it as Prometheus gauges.
type Collector struct {
	sup    *pool.Supervisor
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector bound to sup.
func NewCollector(sup *pool.Supervisor) *Collector {
	return &Collector{
		sup:    sup,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	status := c.sup.GetStatus()

	stateCounts := make(map[ipc.LifecycleState]int)
	for _, snap := range status.Workers {
		stateCounts[snap.Health.State]++
		WorkerMemoryBytes.WithLabelValues(snap.WorkerID).Set(float64(snap.Health.MemoryBytes))
		WorkerActiveRequests.WithLabelValues(snap.WorkerID).Set(float64(snap.Health.ActiveRequests))
	}
	for _, state := range []ipc.LifecycleState{
		ipc.StateStarting, ipc.StateReady, ipc.StateBusy,
		ipc.StateStopping, ipc.StateStopped, ipc.StateCrashed,
	} {
		WorkersTotal.WithLabelValues(string(state)).Set(float64(stateCounts[state]))
	}

	RoutingTableSize.Set(float64(status.RoutingTableSize))
	QueuedRequests.Set(float64(status.QueuedRequests))
}

// RecordRestart increments the restart counter for workerID. Subscribe
// calls it for each worker:restart event, which the supervisor's restart
// policy publishes on every respawn.
func RecordRestart(workerID string) {
	WorkerRestartsTotal.WithLabelValues(workerID).Inc()
}

// RecordCrash increments the crash counter for workerID. Called when a
// slot latches Crashed after exhausting its restart budget.
func RecordCrash(workerID string) {
	WorkerCrashesTotal.WithLabelValues(workerID).Inc()
}

// RecordRouting increments the routing-decision counter for outcome:
// "cached", "new_assignment", or "force_assigned".
func RecordRouting(outcome string) {
	RoutingDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordRequest increments the request-outcome counter ("success",
// "failure", or "timeout") and observes its duration.
func RecordRequest(outcome string, duration time.Duration) {
	RequestsTotal.WithLabelValues(outcome).Inc()
	RequestDuration.Observe(duration.Seconds())
}
