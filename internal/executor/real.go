package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	"github.com/syou6162/git-line-patch/internal/logger"
)

// RealCommandExecutor is the real implementation of CommandExecutor
type RealCommandExecutor struct {
	logger *logger.Logger
	dir    string
}

// Option configures a RealCommandExecutor
type Option func(*RealCommandExecutor)

// WithDir runs every command in dir
func WithDir(dir string) Option {
	return func(r *RealCommandExecutor) {
		r.dir = dir
	}
}

// WithLogger replaces the environment-configured logger
func WithLogger(l *logger.Logger) Option {
	return func(r *RealCommandExecutor) {
		r.logger = l
	}
}

// NewRealCommandExecutor creates a new real executor
func NewRealCommandExecutor(opts ...Option) *RealCommandExecutor {
	r := &RealCommandExecutor{
		logger: logger.NewFromEnv(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute implements CommandExecutor.Execute
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.output(ctx, name, args)
}

func (r *RealCommandExecutor) output(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		r.logger.Error("Command failed: %s %s", name, strings.Join(args, " "))
		if stderr.Len() > 0 {
			r.logger.Error("stderr: %s", stderr.String())
		}

		// Return stderr content along with the error
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = stderr.Bytes()
		}
		return nil, err
	}

	return output, nil
}

// Run implements CommandExecutor.Run.
// ctx is only checked before start; a started process runs to completion.
func (r *RealCommandExecutor) Run(ctx context.Context, name string, stdin io.Reader, args ...string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = r.dir
	cmd.Stdin = stdin
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	r.logger.Debug("Running: %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{ExitCode: exitErr.ExitCode(), Output: combined.Bytes()}, nil
		}
		r.logger.Error("Command could not be started: %s: %v", name, err)
		return nil, err
	}

	return &Result{ExitCode: 0, Output: combined.Bytes()}, nil
}
