// Package apply feeds synthesized patches to git apply and classifies the result.
package apply

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/syou6162/git-line-patch/internal/executor"
	"github.com/syou6162/git-line-patch/internal/logger"
)

// Classification is the interpreted result of an apply
type Classification int

const (
	Success Classification = iota
	BenignWarning
	Conflict
	HardFailure
)

// String returns the string representation of Classification
func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case BenignWarning:
		return "warning"
	case Conflict:
		return "conflict"
	default:
		return "failure"
	}
}

// Outcome is the result of one git apply call
type Outcome struct {
	ExitCode       int
	Output         string
	Classification Classification
	// TimedOut is set when the call was abandoned after the timeout
	TimedOut bool
}

// ConflictState is the answer of a ConflictChecker
type ConflictState int

const (
	// NoConflicts means the failure was not conflict-shaped
	NoConflicts ConflictState = iota
	// ConflictsResolved means conflicts were left and have been handled
	ConflictsResolved
	// ConflictsUnresolved means conflicts remain for the user to resolve
	ConflictsUnresolved
)

// ConflictChecker inspects the repository after a failed three-way apply
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, output string) (ConflictState, error)
}

// WhitespaceFlag is passed to every apply so line patches are never rejected
// for whitespace policy
const WhitespaceFlag = "--whitespace=nowarn"

// DefaultTimeout bounds an apply call when no timeout is configured
const DefaultTimeout = 30 * time.Second

// fileModeWarning matches the mode warnings git emits on filesystems without
// an executable bit
var fileModeWarning = regexp.MustCompile(`(?m)^warning: .*has type .* expected .*\r?\n?`)

// Options configures a Pipeline
type Options struct {
	// Git is the git binary, "git" when empty
	Git     string
	Timeout time.Duration
	// StripFileModeWarnings removes file mode warnings before classification
	StripFileModeWarnings bool
}

// Input is one patch to apply
type Input struct {
	Patch []byte
	Flags []string
	// Historical enables the conflict check after a failed apply
	Historical bool
	// ID correlates the log lines of the call
	ID string
}

// Pipeline runs git apply through an executor
type Pipeline struct {
	executor  executor.CommandExecutor
	conflicts ConflictChecker
	opts      Options
	logger    *logger.Logger
}

// NewPipeline creates a Pipeline. conflicts may be nil.
func NewPipeline(exec executor.CommandExecutor, conflicts ConflictChecker, opts Options, log *logger.Logger) *Pipeline {
	if opts.Git == "" {
		opts.Git = "git"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{executor: exec, conflicts: conflicts, opts: opts, logger: log}
}

// Args returns the git arguments used for flags
func Args(flags []string) []string {
	args := make([]string, 0, len(flags)+2)
	args = append(args, "apply")
	args = append(args, flags...)
	return append(args, WhitespaceFlag)
}

type runResult struct {
	result *executor.Result
	err    error
}

// Apply runs git apply with the patch on stdin. It never retries; a call that
// exceeds the timeout is abandoned, not killed, and reported as a failure.
func (p *Pipeline) Apply(ctx context.Context, in Input) Outcome {
	log := p.logger
	if in.ID != "" {
		log = log.With("apply_id", in.ID)
	}
	args := Args(in.Flags)
	log.Debug("%s %s", p.opts.Git, strings.Join(args, " "))

	done := make(chan runResult, 1)
	go func() {
		res, err := p.executor.Run(ctx, p.opts.Git, bytes.NewReader(in.Patch), args...)
		done <- runResult{res, err}
	}()

	timer := time.NewTimer(p.opts.Timeout)
	defer timer.Stop()

	var rr runResult
	select {
	case rr = <-done:
	case <-timer.C:
		log.Error("git apply did not finish within %s", p.opts.Timeout)
		return Outcome{
			ExitCode:       -1,
			Output:         fmt.Sprintf("git apply did not finish within %s", p.opts.Timeout),
			Classification: HardFailure,
			TimedOut:       true,
		}
	}

	if rr.err != nil {
		log.Error("git apply could not run: %v", rr.err)
		return Outcome{ExitCode: -1, Output: rr.err.Error(), Classification: HardFailure}
	}

	out := Outcome{
		ExitCode: rr.result.ExitCode,
		Output:   p.cleanOutput(rr.result.Output),
	}
	out.Classification = p.classify(ctx, log, out, in.Historical)

	switch out.Classification {
	case Success:
		log.Debug("git apply succeeded")
	case BenignWarning:
		log.Warn("git apply: %s", out.Output)
	default:
		log.Error("git apply exited with %d (%s): %s", out.ExitCode, out.Classification, out.Output)
	}
	return out
}

func (p *Pipeline) cleanOutput(raw []byte) string {
	output := string(raw)
	if p.opts.StripFileModeWarnings {
		output = fileModeWarning.ReplaceAllString(output, "")
	}
	return strings.TrimSpace(output)
}

func (p *Pipeline) classify(ctx context.Context, log *logger.Logger, out Outcome, historical bool) Classification {
	if out.ExitCode == 0 {
		return classifyOutput(out.Output)
	}

	if !historical || p.conflicts == nil {
		return HardFailure
	}
	state, err := p.conflicts.CheckConflicts(ctx, out.Output)
	if err != nil {
		log.Error("conflict check failed: %v", err)
		return HardFailure
	}
	switch state {
	case ConflictsUnresolved:
		return Conflict
	case ConflictsResolved:
		return BenignWarning
	default:
		return HardFailure
	}
}

// classifyOutput classifies the output of a successful exit
func classifyOutput(output string) Classification {
	switch {
	case strings.HasPrefix(output, "error:"):
		return HardFailure
	case strings.HasPrefix(output, "warning:"):
		return BenignWarning
	default:
		return Success
	}
}
