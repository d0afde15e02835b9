package workerproc

import (
	"fmt"
	"os"
)

// RecoverFatal should be deferred once, at the top of the child's
// main, to stand in for an uncaught-exception boundary: a panic
// unwinding past it is reported as a fatal Error and the process exits
// non-zero, the same treatment the supervisor gives any other crash.
func (r *Runtime) RecoverFatal() {
	if rec := recover(); rec != nil {
		r.emitFatal(fmt.Sprintf("panic: %v", rec), "PANIC")
		os.Exit(1)
	}
}

// recoverNonFatal wraps a single asynchronous unit of work (a request
// handler goroutine) so a panic there is reported as a non-fatal Error
// and the runtime continues, rather than taking down the whole process.
func (r *Runtime) recoverNonFatal() {
	if rec := recover(); rec != nil {
		r.emitNonFatal(fmt.Sprintf("panic: %v", rec), "PANIC")
	}
}
