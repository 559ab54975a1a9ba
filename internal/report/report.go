// Package report translates apply outcomes into results for the caller.
package report

import (
	"fmt"
	"sync"

	"golang.org/x/text/encoding"

	"github.com/syou6162/git-line-patch/internal/apply"
	"github.com/syou6162/git-line-patch/internal/logger"
	"github.com/syou6162/git-line-patch/internal/operation"
	"github.com/syou6162/git-line-patch/internal/patch"
)

// Kind is the caller-visible kind of a result
type Kind int

const (
	KindApplied Kind = iota
	KindWarning
	KindConflict
	KindFailed
	// KindNoOp means the selection contained no changes
	KindNoOp
	// KindDisabled means the action is not available for the file right now
	KindDisabled
	// KindFellBack means the whole file was handled instead of the selection
	KindFellBack
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindApplied:
		return "applied"
	case KindWarning:
		return "warning"
	case KindConflict:
		return "conflict"
	case KindFailed:
		return "failed"
	case KindNoOp:
		return "no-op"
	case KindDisabled:
		return "disabled"
	case KindFellBack:
		return "fell-back"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is what a line patch request produced
type Result struct {
	// ID correlates the result with its log lines
	ID        string
	Kind      Kind
	Operation operation.PatchOperation
	Path      string
	Message   string
	// Output is the trimmed output of git
	Output string
	// Patch is set for conflicts and failures so they can be diagnosed
	Patch    string
	Stats    patch.Stats
	TimedOut bool
}

// OK reports whether the request left the repository as intended
func (r *Result) OK() bool {
	switch r.Kind {
	case KindApplied, KindWarning, KindNoOp, KindFellBack:
		return true
	}
	return false
}

// Latch gates line patching between reloads of the displayed diff. The zero
// value allows patching.
type Latch struct {
	mu      sync.Mutex
	blocked bool
}

// Allow re-enables line patching, typically after a reload
func (l *Latch) Allow() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked = false
}

// Allowed reports whether line patching is enabled
func (l *Latch) Allowed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.blocked
}

// Clear disables line patching until the next Allow
func (l *Latch) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked = true
}

// Reporter builds results and maintains the latch
type Reporter struct {
	latch            *Latch
	blockUntilReload bool
	logger           *logger.Logger
}

// NewReporter creates a Reporter. With blockUntilReload every apply that
// changes the index or worktree clears latch, since the displayed diff no
// longer matches the repository.
func NewReporter(latch *Latch, blockUntilReload bool, log *logger.Logger) *Reporter {
	if latch == nil {
		latch = &Latch{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Reporter{latch: latch, blockUntilReload: blockUntilReload, logger: log}
}

// Latch returns the latch the reporter maintains
func (r *Reporter) Latch() *Latch {
	return r.latch
}

// Applied reports the outcome of git apply for a synthesized patch
func (r *Reporter) Applied(id, path string, plan *operation.Plan, p []byte, enc encoding.Encoding, out apply.Outcome) *Result {
	if r.blockUntilReload && !plan.Operation.Historical() {
		r.latch.Clear()
	}

	res := &Result{
		ID:        id,
		Operation: plan.Operation,
		Path:      path,
		Output:    out.Output,
		TimedOut:  out.TimedOut,
	}
	if stats, err := patch.CountChanges(p); err == nil {
		res.Stats = stats
	} else {
		r.logger.Debug("no stats for %s: %v", path, err)
	}

	switch out.Classification {
	case apply.Success:
		res.Kind = KindApplied
		res.Message = fmt.Sprintf("%s %s: %s", plan.Operation, path, res.Stats)
	case apply.BenignWarning:
		res.Kind = KindWarning
		res.Message = fmt.Sprintf("%s %s with warnings", plan.Operation, path)
	case apply.Conflict:
		res.Kind = KindConflict
		res.Message = fmt.Sprintf("%s %s left conflicts to resolve", plan.Operation, path)
		res.Patch = decode(p, enc)
	default:
		res.Kind = KindFailed
		res.Message = fmt.Sprintf("failed to %s %s", plan.Operation, path)
		if out.TimedOut {
			res.Message += ": timed out"
		}
		res.Patch = decode(p, enc)
	}
	return res
}

// NoOp reports a selection without changes
func (r *Reporter) NoOp(id, path string, plan *operation.Plan) *Result {
	return &Result{
		ID:        id,
		Kind:      KindNoOp,
		Operation: plan.Operation,
		Path:      path,
		Message:   fmt.Sprintf("nothing to %s in the selection", plan.Operation),
	}
}

// Disabled reports a request that could not run
func (r *Reporter) Disabled(id, path string, err error) *Result {
	return &Result{
		ID:      id,
		Kind:    KindDisabled,
		Path:    path,
		Message: err.Error(),
	}
}

// FellBack reports a whole-file operation run instead of a line patch
func (r *Reporter) FellBack(id, path string, plan *operation.Plan, output string, cause error) *Result {
	if r.blockUntilReload {
		r.latch.Clear()
	}
	return &Result{
		ID:        id,
		Kind:      KindFellBack,
		Operation: plan.Operation,
		Path:      path,
		Output:    output,
		Message:   fmt.Sprintf("%s applied to the whole file: %v", plan.Operation, cause),
	}
}

// Failed reports a whole-file operation that failed
func (r *Reporter) Failed(id, path string, plan *operation.Plan, output string, err error) *Result {
	return &Result{
		ID:        id,
		Kind:      KindFailed,
		Operation: plan.Operation,
		Path:      path,
		Output:    output,
		Message:   fmt.Sprintf("failed to %s %s: %v", plan.Operation, path, err),
	}
}

// decode returns the patch as text in the file's encoding
func decode(p []byte, enc encoding.Encoding) string {
	if enc == nil {
		return string(p)
	}
	text, err := enc.NewDecoder().Bytes(p)
	if err != nil {
		return string(p)
	}
	return string(text)
}
