// Package linepatch turns a selection in a displayed diff into a line patch
// and applies it to the repository.
package linepatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/syou6162/git-line-patch/internal/apply"
	"github.com/syou6162/git-line-patch/internal/diffmodel"
	"github.com/syou6162/git-line-patch/internal/logger"
	"github.com/syou6162/git-line-patch/internal/operation"
	"github.com/syou6162/git-line-patch/internal/patch"
	"github.com/syou6162/git-line-patch/internal/patcherr"
	"github.com/syou6162/git-line-patch/internal/report"
	"github.com/syou6162/git-line-patch/internal/selection"
)

// BlobLookup finds the object id of the indexed or committed content of a file
type BlobLookup interface {
	IndexBlobID(ctx context.Context, path string) (string, error)
	RevisionBlobID(ctx context.Context, rev, path string) (string, error)
}

// Fallback runs an operation on the whole file when the displayed text
// cannot be line patched
type Fallback interface {
	WholeFile(ctx context.Context, op operation.PatchOperation, path string) (string, error)
}

// Request is one line patch request
type Request struct {
	File   *operation.FileContext
	Action operation.Action
	// Text is the displayed diff, or the whole file text for new files
	Text      string
	Selection selection.Range
}

// Config wires an Engine
type Config struct {
	Selector *operation.Selector
	Pipeline *apply.Pipeline
	Reporter *report.Reporter
	// Blobs fills in a missing tree id; optional
	Blobs BlobLookup
	// Fallback handles malformed diffs; optional
	Fallback          Fallback
	ValidatePatches   bool
	WholeFileFallback bool
}

// Engine runs line patch requests. Requests for different paths may run
// concurrently; overlapping requests for one path are rejected.
type Engine struct {
	cfg    Config
	logger *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates an Engine
func New(cfg Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = report.NewReporter(nil, false, log)
	}
	return &Engine{
		cfg:      cfg,
		logger:   log,
		inFlight: make(map[string]struct{}),
	}
}

// Latch returns the latch that gates line patching between reloads
func (e *Engine) Latch() *report.Latch {
	return e.cfg.Reporter.Latch()
}

// Run synthesizes and applies the patch for req. Disabled actions and empty
// selections are results, not errors.
func (e *Engine) Run(ctx context.Context, req Request) (*report.Result, error) {
	fc := req.File
	if fc == nil {
		return nil, errors.New("request has no file context")
	}
	id := uuid.NewString()
	log := e.logger.With("apply_id", id)

	release, err := e.acquire(fc.Path)
	if err != nil {
		return nil, err
	}
	defer release()

	if !e.Latch().Allowed() {
		return e.cfg.Reporter.Disabled(id, fc.Path, errors.New("line patching is disabled until the diff is reloaded")), nil
	}

	plan, err := e.cfg.Selector.Select(ctx, fc, req.Action)
	if err != nil {
		if errors.Is(err, patcherr.ErrActionDisabled) {
			log.Info("%s is not available for %s", req.Action, fc.Path)
			return e.cfg.Reporter.Disabled(id, fc.Path, err), nil
		}
		return nil, err
	}

	p, err := e.synthesize(ctx, req, plan)
	if err != nil {
		if patcherr.IsMalformedDiff(err) && e.canFallBack(plan) {
			return e.fallBack(ctx, id, fc.Path, plan, err)
		}
		return nil, err
	}
	if p == nil {
		log.Info("nothing to %s in the selection of %s", plan.Operation, fc.Path)
		return e.cfg.Reporter.NoOp(id, fc.Path, plan), nil
	}

	if e.cfg.ValidatePatches {
		if err := patch.Validate(p); err != nil {
			log.Error("synthesized patch for %s is invalid: %v", fc.Path, err)
			return nil, err
		}
		if info, err := patch.Inspect(p); err == nil {
			log.Debug("patch %s %s with %d fragment(s)", info.Operation, info.Path, info.Fragments)
		}
	}

	out := e.cfg.Pipeline.Apply(ctx, apply.Input{
		Patch:      p,
		Flags:      plan.Flags,
		Historical: plan.Operation.Historical(),
		ID:         id,
	})
	if !plan.Operation.Historical() {
		fc.Invalidate()
	}

	res := e.cfg.Reporter.Applied(id, fc.Path, plan, p, fc.Encoding, out)
	log.Info("%s", res.Message)
	return res, nil
}

// Preview returns the patch Run would apply, without applying it. A nil
// patch means the selection holds no changes.
func (e *Engine) Preview(ctx context.Context, req Request) ([]byte, error) {
	if req.File == nil {
		return nil, errors.New("request has no file context")
	}
	plan, err := e.cfg.Selector.Select(ctx, req.File, req.Action)
	if err != nil {
		return nil, err
	}
	p, err := e.synthesize(ctx, req, plan)
	if err != nil {
		return nil, err
	}
	if p != nil && e.cfg.ValidatePatches {
		if err := patch.Validate(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// StageSelectedLines stages the selection. On a committed diff it applies
// the selection to the worktree and index instead.
func (e *Engine) StageSelectedLines(ctx context.Context, fc *operation.FileContext, text string, r selection.Range) (*report.Result, error) {
	return e.runMapped(ctx, fc, text, r, operation.ActionStage, operation.ActionApply)
}

// UnstageSelectedLines removes the selection from the index
func (e *Engine) UnstageSelectedLines(ctx context.Context, fc *operation.FileContext, text string, r selection.Range) (*report.Result, error) {
	return e.Run(ctx, Request{File: fc, Action: operation.ActionUnstage, Text: text, Selection: r})
}

// ResetSelectedLines discards the selection. On a committed diff it reverts
// the selection instead.
func (e *Engine) ResetSelectedLines(ctx context.Context, fc *operation.FileContext, text string, r selection.Range) (*report.Result, error) {
	return e.runMapped(ctx, fc, text, r, operation.ActionReset, operation.ActionRevert)
}

// ApplySelectedLines applies the selection of a historical diff, or the
// whole diff when allFile is set. reverse reverts instead.
func (e *Engine) ApplySelectedLines(ctx context.Context, fc *operation.FileContext, text string, r selection.Range, allFile, reverse bool) (*report.Result, error) {
	if allFile {
		r = selection.All()
	}
	action := operation.ActionApply
	if reverse {
		action = operation.ActionRevert
	}
	return e.Run(ctx, Request{File: fc, Action: action, Text: text, Selection: r})
}

// CherryPickAllChanges applies every change of a historical diff
func (e *Engine) CherryPickAllChanges(ctx context.Context, fc *operation.FileContext, text string) (*report.Result, error) {
	return e.ApplySelectedLines(ctx, fc, text, selection.Range{}, true, false)
}

func (e *Engine) runMapped(ctx context.Context, fc *operation.FileContext, text string, r selection.Range, action, committed operation.Action) (*report.Result, error) {
	if fc == nil {
		return nil, errors.New("request has no file context")
	}
	status, err := e.cfg.Selector.Status(ctx, fc)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve status of %s: %w", fc.Path, err)
	}
	if status == operation.StatusCommitted {
		action = committed
	}
	return e.Run(ctx, Request{File: fc, Action: action, Text: text, Selection: r})
}

func (e *Engine) synthesize(ctx context.Context, req Request, plan *operation.Plan) ([]byte, error) {
	fc := req.File
	opts := patch.Options{Encoding: fc.Encoding, Path: fc.Path, Renamed: fc.IsRenamed}

	if plan.Builder == operation.BuilderNewFile {
		file := patch.NewFile{Path: fc.Path, Text: req.Text, Preamble: fc.Preamble, TreeID: fc.TreeID}
		if selection.Lines(req.Text, req.Selection).Count() == 0 {
			return nil, nil
		}
		if file.TreeID == "" && plan.Polarity == patch.Reverse && e.cfg.Blobs != nil {
			file.TreeID = e.lookUpBlob(ctx, fc, plan)
		}
		return patch.FromNewFile(file, req.Selection, plan.Polarity, plan.IndexTarget, opts)
	}

	doc, err := diffmodel.Parse(req.Text)
	if err != nil {
		return nil, err
	}
	touched := selection.Map(doc, req.Selection)
	if plan.Builder == operation.BuilderWorkTreeReset {
		return patch.FromWorkTreeReset(doc, touched, opts)
	}
	return patch.FromExistingHunks(doc, touched, plan.Polarity, plan.IndexTarget, opts)
}

// lookUpBlob returns the object id a reverse new-file patch is based on: the
// indexed blob for index targets, the committed blob for historical ones. An
// empty id means there is none.
func (e *Engine) lookUpBlob(ctx context.Context, fc *operation.FileContext, plan *operation.Plan) string {
	var (
		id  string
		err error
	)
	switch {
	case plan.RequireTree:
		id, err = e.cfg.Blobs.IndexBlobID(ctx, fc.Path)
	case plan.Operation.Historical() && fc.Revision != "":
		id, err = e.cfg.Blobs.RevisionBlobID(ctx, fc.Revision, fc.Path)
	default:
		return ""
	}
	if err != nil {
		e.logger.Warn("cannot look up the blob of %s: %v", fc.Path, err)
		return ""
	}
	return id
}

func (e *Engine) canFallBack(plan *operation.Plan) bool {
	return e.cfg.WholeFileFallback && e.cfg.Fallback != nil && !plan.Operation.Historical()
}

func (e *Engine) fallBack(ctx context.Context, id, path string, plan *operation.Plan, cause error) (*report.Result, error) {
	e.logger.Warn("cannot line patch %s, running %s on the whole file: %v", path, plan.Operation, cause)
	output, err := e.cfg.Fallback.WholeFile(ctx, plan.Operation, path)
	if err != nil {
		return e.cfg.Reporter.Failed(id, path, plan, output, err), nil
	}
	return e.cfg.Reporter.FellBack(id, path, plan, output, cause), nil
}

func (e *Engine) acquire(path string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[path]; busy {
		return nil, patcherr.NewApplyInProgressError(path)
	}
	e.inFlight[path] = struct{}{}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.inFlight, path)
	}, nil
}
