package gitrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/syou6162/git-line-patch/internal/apply"
)

// CheckConflicts reports whether a failed three-way apply left unmerged
// entries in the index, offering them to the conflict handler if one is set.
func (r *Repository) CheckConflicts(ctx context.Context, output string) (apply.ConflictState, error) {
	paths, err := r.UnmergedPaths()
	if err != nil {
		return apply.NoConflicts, err
	}
	if len(paths) == 0 {
		return apply.NoConflicts, nil
	}
	r.logger.Info("unmerged after apply: %v", paths)

	if r.conflict == nil {
		return apply.ConflictsUnresolved, nil
	}
	resolved, err := r.conflict(ctx, paths)
	if err != nil {
		return apply.ConflictsUnresolved, fmt.Errorf("conflict handler failed: %w", err)
	}
	if resolved {
		return apply.ConflictsResolved, nil
	}
	return apply.ConflictsUnresolved, nil
}

// UnmergedPaths returns the sorted paths with entries in a merge stage
func (r *Repository) UnmergedPaths() ([]string, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, e := range idx.Entries {
		if e.Stage == 0 || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		paths = append(paths, e.Name)
	}
	sort.Strings(paths)
	return paths, nil
}
