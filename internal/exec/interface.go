// Package exec provides an interface for running external commands
// with captured output and a wall-clock timeout.
package exec

import (
	"context"
	"time"
)

// Result is the outcome of one command execution.
type Result struct {
	// ExitCode is the process exit code; -1 when the command timed out
	// or could not be started.
	ExitCode int
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
	// TimedOut is true when the timeout expired before the command
	// finished.
	TimedOut bool
}

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a shell command, feeding stdin to the process and
	// capturing stdout and stderr separately. The command is killed
	// when timeout elapses; a timeout is reported in the Result, not
	// as an error. The returned error covers only failures to spawn.
	Run(ctx context.Context, command string, stdin []byte, timeout time.Duration) (Result, error)
}
