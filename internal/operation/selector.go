package operation

import (
	"context"
	"fmt"

	"github.com/syou6162/git-line-patch/internal/logger"
	"github.com/syou6162/git-line-patch/internal/patch"
	"github.com/syou6162/git-line-patch/internal/patcherr"
)

const (
	flagCached  = "--cached"
	flagIndex   = "--index"
	flagReverse = "--reverse"
	flag3Way    = "--3way"
)

// Plan is how a line patch for one request is built and applied
type Plan struct {
	Operation PatchOperation
	Builder   Builder
	Polarity  patch.Polarity
	// IndexTarget marks that the displayed changes are staged
	IndexTarget bool
	// RequireTree marks a new-file patch that must reference the indexed blob
	RequireTree bool
	// Flags are the git apply flags, without the whitespace policy
	Flags []string
}

// Reverse reports whether the plan applies with --reverse
func (p *Plan) Reverse() bool {
	for _, f := range p.Flags {
		if f == flagReverse {
			return true
		}
	}
	return false
}

type cell struct {
	status StagedStatus
	action Action
}

// table maps every enabled (status, action) pair to its plan. Pairs missing
// from the table are disabled.
var table = map[cell]Plan{
	{StatusWorkTree, ActionStage}: {
		Operation: OperationStage,
		Builder:   BuilderExistingHunks,
		Polarity:  patch.Forward,
		Flags:     []string{flagCached, flagIndex},
	},
	{StatusWorkTree, ActionReset}: {
		Operation: OperationResetWorkTree,
		Builder:   BuilderWorkTreeReset,
		Polarity:  patch.Forward,
	},
	{StatusIndex, ActionUnstage}: {
		Operation:   OperationUnstage,
		Builder:     BuilderExistingHunks,
		Polarity:    patch.Reverse,
		IndexTarget: true,
		Flags:       []string{flagCached, flagIndex, flagReverse},
	},
	{StatusIndex, ActionReset}: {
		Operation:   OperationResetIndex,
		Builder:     BuilderExistingHunks,
		Polarity:    patch.Reverse,
		IndexTarget: true,
		Flags:       []string{flagCached, flagIndex, flagReverse},
	},
	{StatusCommitted, ActionApply}: {
		Operation: OperationApplyForward,
		Builder:   BuilderExistingHunks,
		Polarity:  patch.Forward,
		Flags:     []string{flag3Way, flagIndex},
	},
	{StatusCommitted, ActionRevert}: {
		Operation: OperationApplyReverse,
		Builder:   BuilderWorkTreeReset,
		Polarity:  patch.Forward,
		Flags:     []string{flag3Way, flagIndex},
	},
}

// Lookup returns the plan for a known status and action. ok is false for
// disabled pairs and for an unknown status.
func Lookup(status StagedStatus, action Action) (plan Plan, ok bool) {
	plan, ok = table[cell{status, action}]
	if !ok {
		return Plan{}, false
	}
	plan.Flags = append([]string(nil), plan.Flags...)
	return plan, true
}

// Selector turns a file context and an action into a plan
type Selector struct {
	resolver StatusResolver
	logger   *logger.Logger
}

// NewSelector creates a Selector. resolver answers for files whose status is unknown.
func NewSelector(resolver StatusResolver, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.Discard()
	}
	return &Selector{resolver: resolver, logger: log}
}

// Select returns the plan for action on fc, or an action disabled error.
// New files always use the new-file builder, reversed for every operation
// except staging and cherry-picking.
func (s *Selector) Select(ctx context.Context, fc *FileContext, action Action) (*Plan, error) {
	status, err := fc.ResolveStatus(ctx, s.resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve status of %s: %w", fc.Path, err)
	}

	plan, ok := Lookup(status, action)
	if !ok {
		return nil, patcherr.NewActionDisabledError(action.String(), status.String()).
			WithContext("path", fc.Path)
	}

	if fc.IsNew {
		plan.Builder = BuilderNewFile
		plan.Polarity = patch.Reverse
		if plan.Operation == OperationStage || plan.Operation == OperationApplyForward {
			plan.Polarity = patch.Forward
		}
		plan.RequireTree = plan.Polarity == patch.Reverse && status == StatusIndex
		plan.Flags = without(plan.Flags, flagReverse)
	}

	s.logger.Debug("plan for %s %s (%s): %s via %s %s %v", action, fc.Path, status,
		plan.Operation, plan.Builder, plan.Polarity, plan.Flags)
	return &plan, nil
}

// Status returns the staged status of fc, resolving an unknown one
func (s *Selector) Status(ctx context.Context, fc *FileContext) (StagedStatus, error) {
	return fc.ResolveStatus(ctx, s.resolver)
}

// Enabled reports whether action is available for fc
func (s *Selector) Enabled(ctx context.Context, fc *FileContext, action Action) bool {
	status, err := fc.ResolveStatus(ctx, s.resolver)
	if err != nil {
		s.logger.Warn("cannot resolve status of %s: %v", fc.Path, err)
		return false
	}
	_, ok := Lookup(status, action)
	return ok
}

func without(flags []string, flag string) []string {
	out := flags[:0]
	for _, f := range flags {
		if f != flag {
			out = append(out, f)
		}
	}
	return out
}
