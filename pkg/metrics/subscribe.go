package metrics

import "github.com/cuemby/moltpool/pkg/events"

// Subscribe attaches a subscriber to broker and records every
// worker:restart, worker:crash, worker:startup, pool:stopped,
// request:complete, request:failed, and routing:decision event as the
// corresponding Prometheus counter or histogram, until stopCh closes.
// Call alongside Collector.Start, which handles the periodic gauges;
// Subscribe handles the event-driven metrics the periodic sampler
// would otherwise miss between ticks.
func Subscribe(broker *events.Broker, stopCh <-chan struct{}) {
	sub := broker.Subscribe()
	go func() {
		defer broker.Unsubscribe(sub)
		for {
			select {
			case event, ok := <-sub:
				if !ok {
					return
				}
				recordEvent(event)
			case <-stopCh:
				return
			}
		}
	}()
}

func recordEvent(event *events.Event) {
	switch event.Type {
	case events.EventWorkerRestart:
		RecordRestart(event.WorkerID)
	case events.EventWorkerCrash:
		RecordCrash(event.WorkerID)
	case events.EventRequestComplete:
		RecordRequest("success", event.Duration)
	case events.EventRequestFailed:
		RecordRequest("failure", event.Duration)
	case events.EventRoutingDecision:
		RecordRouting(event.Outcome)
	case events.EventWorkerStartup:
		WorkerStartupDuration.Observe(event.Duration.Seconds())
	case events.EventPoolStopped:
		PoolStopDuration.Observe(event.Duration.Seconds())
	}
}
