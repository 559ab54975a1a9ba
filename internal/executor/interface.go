package executor

import (
	"context"
	"io"
)

// CommandExecutor defines the interface for executing external commands
type CommandExecutor interface {
	// Execute runs a command and returns its output
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)

	// Run runs a command with stdin input and returns its combined output and
	// exit code. A non-zero exit code is not an error; err is reserved for
	// commands that could not be started.
	Run(ctx context.Context, name string, stdin io.Reader, args ...string) (*Result, error)
}

// Result is the outcome of a command started by Run
type Result struct {
	ExitCode int
	Output   []byte
}
