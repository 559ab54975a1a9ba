package operation

import (
	"context"
	"sync"

	"golang.org/x/text/encoding"
)

// StatusResolver determines the staged status of a file whose status is unknown
type StatusResolver interface {
	ResolveStatus(ctx context.Context, path string) (StagedStatus, error)
}

// FileContext holds what the caller knows about the displayed file. It is
// owned by the caller and read-only during a call, except that an unknown
// status is resolved once and kept until Invalidate.
type FileContext struct {
	Path      string
	IsNew     bool
	IsRenamed bool
	Status    StagedStatus
	// TreeID is the object id of the indexed content of a new file
	TreeID string
	// Revision is the commit a historical diff belongs to
	Revision string
	// Preamble holds bytes stripped from the start of the file, such as a byte-order mark
	Preamble []byte
	// Encoding of the file content; nil means UTF-8
	Encoding encoding.Encoding

	mu       sync.Mutex
	resolved *StagedStatus
}

// ResolveStatus returns Status, or the cached status resolved through r when
// Status is unknown. The resolver is consulted at most once until Invalidate.
func (fc *FileContext) ResolveStatus(ctx context.Context, r StatusResolver) (StagedStatus, error) {
	if fc.Status != StatusUnknown {
		return fc.Status, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.resolved != nil {
		return *fc.resolved, nil
	}
	if r == nil {
		return StatusUnknown, nil
	}
	status, err := r.ResolveStatus(ctx, fc.Path)
	if err != nil {
		return StatusUnknown, err
	}
	fc.resolved = &status
	return status, nil
}

// Invalidate forgets a resolved status, typically after the view is reloaded
func (fc *FileContext) Invalidate() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.resolved = nil
}
