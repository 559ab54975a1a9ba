package gitrepo

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/syou6162/git-line-patch/internal/operation"
)

// ResolveStatus determines which side of the repository a file's displayed
// changes live on: staged changes win, then worktree changes. A file without
// either is only shown through a historical diff.
func (r *Repository) ResolveStatus(ctx context.Context, path string) (operation.StagedStatus, error) {
	status, err := r.worktreeStatus(ctx)
	if err != nil {
		return operation.StatusUnknown, err
	}

	fs, ok := status[path]
	if !ok {
		return operation.StatusCommitted, nil
	}
	switch {
	case fs.Staging == git.UpdatedButUnmerged:
		return operation.StatusUnknown, fmt.Errorf("%s has unresolved conflicts", path)
	case fs.Staging != git.Unmodified && fs.Staging != git.Untracked:
		return operation.StatusIndex, nil
	case fs.Worktree != git.Unmodified:
		return operation.StatusWorkTree, nil
	default:
		return operation.StatusCommitted, nil
	}
}

// worktreeStatus computes the worktree status once for all concurrent callers
func (r *Repository) worktreeStatus(ctx context.Context) (git.Status, error) {
	ch := r.status.DoChan("status", func() (interface{}, error) {
		w, err := r.repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("failed to get worktree: %w", err)
		}
		status, err := w.Status()
		if err != nil {
			return nil, fmt.Errorf("failed to get status: %w", err)
		}
		return status, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(git.Status), nil
	}
}
