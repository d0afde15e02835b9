/*
Package log provides structured logging for moltpool using zerolog.

A single global Logger is configured once via Init, and the subsystems
that log (supervisor, worker runtime, gateway) derive child loggers
from it with WithComponent, WithWorkerID, WithRequestID, or WithUserID
so that log lines carry structured fields instead of interpolated
strings.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	routerLog := log.WithComponent("router")
	routerLog.Info().Str("worker_id", "worker-2").Msg("worker added to ring")
*/
package log
