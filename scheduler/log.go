package scheduler

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

var schedLog *log.Logger

func init() {
	// Debug logging is enabled via environment variable; disabled it costs
	// one io.Discard write per Printf.
	if os.Getenv("MIPS32SIM_DEBUG") != "" {
		// Note: file handle intentionally not closed - kept open for process
		// lifetime. The OS cleans up on process exit.
		logPath := filepath.Join(os.TempDir(), "mips32sim-scheduler-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			schedLog = log.New(os.Stderr, "SCHED: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			schedLog = log.New(f, "SCHED: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		schedLog = log.New(io.Discard, "", 0)
	}
}
