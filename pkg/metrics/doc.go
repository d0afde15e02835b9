/*
Package metrics provides Prometheus metrics collection and exposition
for the worker pool: worker lifecycle gauges, restart/crash counters,
routing-decision counters, request outcome counters and latency
histograms, plus the generic HealthChecker used for liveness/readiness
probes. Collector periodically samples a Supervisor's status snapshot;
Subscribe drives the event-sourced counters off the pool's event
broker. Handler exposes the registry over HTTP for scraping.
*/
package metrics
