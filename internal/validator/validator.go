package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syou6162/git-line-patch/internal/executor"
	"github.com/syou6162/git-line-patch/internal/operation"
	"github.com/syou6162/git-line-patch/internal/selection"
)

// Validator handles dependency checks and argument validation for git-line-patch.
// It ensures that required external commands are available and that arguments are valid.
type Validator struct {
	executor executor.CommandExecutor
	git      string
}

// NewValidator creates a new Validator instance with the provided command executor.
// git is the binary checked by CheckDependencies, "git" when empty.
func NewValidator(exec executor.CommandExecutor, git string) *Validator {
	if git == "" {
		git = "git"
	}
	return &Validator{
		executor: exec,
		git:      git,
	}
}

// CheckDependencies checks if required external commands (git) are available.
// Returns an error if any dependency is missing.
func (v *Validator) CheckDependencies(ctx context.Context) error {
	if _, err := v.executor.Execute(ctx, v.git, "--version"); err != nil {
		return errors.New("git command not found")
	}

	return nil
}

// Args are the raw command line arguments of a line patch request
type Args struct {
	Path   string
	Action string
	Status string
	Start  int
	Length int
	New    bool
	Tree   string
}

// Parsed are validated arguments
type Parsed struct {
	Action    operation.Action
	Status    operation.StagedStatus
	Selection selection.Range
}

// ValidateArgs validates command line arguments
func (v *Validator) ValidateArgs(args Args) (*Parsed, error) {
	if strings.TrimSpace(args.Path) == "" {
		return nil, errors.New("path cannot be empty")
	}

	action, err := operation.ParseAction(args.Action)
	if err != nil {
		return nil, err
	}
	status, err := operation.ParseStagedStatus(args.Status)
	if err != nil {
		return nil, err
	}

	if args.Start < 0 {
		return nil, fmt.Errorf("start must not be negative: %d", args.Start)
	}
	if args.Length < selection.AllText {
		return nil, fmt.Errorf("length must be %d (whole text) or more: %d", selection.AllText, args.Length)
	}
	r := selection.Range{Start: args.Start, Length: args.Length}
	if r.IsAll() {
		r = selection.All()
	}

	if args.Tree != "" {
		if !args.New {
			return nil, errors.New("tree can only be given for new files")
		}
		if !isObjectID(args.Tree) {
			return nil, fmt.Errorf("invalid tree object id: %s", args.Tree)
		}
	}

	return &Parsed{Action: action, Status: status, Selection: r}, nil
}

// isObjectID accepts full and abbreviated hexadecimal object ids
func isObjectID(s string) bool {
	if len(s) < 4 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
