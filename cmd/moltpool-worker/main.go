// Command moltpool-worker is the child process pool.Supervisor forks
// for each worker slot. It is never invoked directly by an operator;
// the supervisor launches it with stdin/stdout wired as the IPC
// channel and an Init envelope as the first message.
package main

import (
	"context"
	"os"

	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/log"
	"github.com/cuemby/moltpool/pkg/workerproc"
)

func main() {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stderr})

	conn := ipc.NewConn(os.Stdin, os.Stdout)

	var rt *workerproc.Runtime
	rt = workerproc.New(conn, newHandler(&rt))

	rt.WatchSignals()
	defer rt.RecoverFatal()

	if err := rt.Run(context.Background()); err != nil {
		log.Logger.Error().Err(err).Msg("worker runtime exited with error")
		os.Exit(1)
	}
}
