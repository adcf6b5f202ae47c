package process

import (
	"fmt"
	"time"
)

// Exit describes how a subprocess terminated.
type Exit struct {
	// Code is the process exit code. -1 if the process was killed by a signal.
	Code int
	// Signal names the terminating signal, empty for a normal exit.
	Signal string
	// Duration is how long the process ran.
	Duration time.Duration
	// Err is set when the process did not exit cleanly with code 0.
	Err error
}

// Success reports whether the process exited with code 0.
func (e Exit) Success() bool {
	return e.Code == 0 && e.Signal == ""
}

func (e Exit) String() string {
	if e.Signal != "" {
		return fmt.Sprintf("signal %s", e.Signal)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}
