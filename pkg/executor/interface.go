package executor

import (
	"context"
	"io"
)

// Executor runs external commands.
type Executor interface {
	// Execute runs a command to completion and returns its stdout.
	Execute(ctx context.Context, name string, args ...string) (string, error)
	// Start launches a long running command and returns a handle to it.
	Start(name string, args ...string) (Process, error)
}

// Process is a started command that is still running.
type Process interface {
	// Stdin is connected to the process standard input.
	Stdin() io.Writer
	// Wait blocks until the process exits.
	Wait() error
	// Kill terminates the process immediately.
	Kill() error
}
