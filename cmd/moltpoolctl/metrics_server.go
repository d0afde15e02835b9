package main

import (
	"net/http"

	"github.com/cuemby/moltpool/pkg/log"
	"github.com/cuemby/moltpool/pkg/metrics"
)

// serveMetrics blocks serving /metrics, /health, /ready, and /live on
// addr; callers run it in its own goroutine.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Logger.Error().Err(err).Msg("metrics server exited")
	}
}
