// Package operation chooses how a line patch is built and applied from the
// state of the file and the action the user asked for.
package operation

import (
	"fmt"
	"strings"
)

// StagedStatus is where the displayed changes of a file live
type StagedStatus int

const (
	StatusUnknown StagedStatus = iota
	StatusWorkTree
	StatusIndex
	StatusCommitted
)

// String returns the string representation of StagedStatus
func (s StagedStatus) String() string {
	switch s {
	case StatusWorkTree:
		return "worktree"
	case StatusIndex:
		return "index"
	case StatusCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// ParseStagedStatus parses the names returned by String
func ParseStagedStatus(s string) (StagedStatus, error) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return StatusUnknown, nil
	case "worktree":
		return StatusWorkTree, nil
	case "index":
		return StatusIndex, nil
	case "committed":
		return StatusCommitted, nil
	}
	return StatusUnknown, fmt.Errorf("unknown staged status %q", s)
}

// Action is what the user asked to do with the selected lines
type Action int

const (
	ActionStage Action = iota
	ActionUnstage
	ActionReset
	// ActionApply cherry-picks the selection of a historical diff
	ActionApply
	// ActionRevert reverse-applies the selection of a historical diff
	ActionRevert
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ActionStage:
		return "stage"
	case ActionUnstage:
		return "unstage"
	case ActionReset:
		return "reset"
	case ActionApply:
		return "apply"
	case ActionRevert:
		return "revert"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction parses the names returned by String
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "stage":
		return ActionStage, nil
	case "unstage":
		return ActionUnstage, nil
	case "reset":
		return ActionReset, nil
	case "apply", "cherry-pick":
		return ActionApply, nil
	case "revert":
		return ActionRevert, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// PatchOperation is the resolved operation a line patch performs
type PatchOperation int

const (
	OperationStage PatchOperation = iota
	OperationUnstage
	OperationResetWorkTree
	OperationResetIndex
	OperationApplyForward
	OperationApplyReverse
)

// String returns the string representation of PatchOperation
func (o PatchOperation) String() string {
	switch o {
	case OperationStage:
		return "stage"
	case OperationUnstage:
		return "unstage"
	case OperationResetWorkTree:
		return "reset-worktree"
	case OperationResetIndex:
		return "reset-index"
	case OperationApplyForward:
		return "apply-forward"
	case OperationApplyReverse:
		return "apply-reverse"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// Historical reports whether the operation applies a historical diff
// rather than moving changes between worktree and index
func (o PatchOperation) Historical() bool {
	return o == OperationApplyForward || o == OperationApplyReverse
}

// Builder names the patch constructor a plan uses
type Builder int

const (
	BuilderExistingHunks Builder = iota
	BuilderNewFile
	BuilderWorkTreeReset
)

// String returns the string representation of Builder
func (b Builder) String() string {
	switch b {
	case BuilderNewFile:
		return "new-file"
	case BuilderWorkTreeReset:
		return "worktree-reset"
	default:
		return "existing-hunks"
	}
}
