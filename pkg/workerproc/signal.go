package workerproc

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// WatchSignals starts a goroutine that translates SIGTERM into a 5 s
// graceful shutdown and SIGINT into a 1 s one, matching the grace
// periods a process manager expects from each signal.
func (r *Runtime) WatchSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		for sig := range ch {
			switch sig {
			case syscall.SIGTERM:
				r.gracefulShutdown(5 * time.Second)
			case syscall.SIGINT:
				r.gracefulShutdown(1 * time.Second)
			}
			return
		}
	}()
}
