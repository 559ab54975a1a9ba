// Package gitrepo answers the questions a line patch asks about a repository,
// using go-git for reads and the git CLI for writes.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"golang.org/x/sync/singleflight"

	"github.com/syou6162/git-line-patch/internal/executor"
	"github.com/syou6162/git-line-patch/internal/logger"
)

// ConflictHandler is offered the unmerged paths left by a three-way apply.
// It returns true when the user resolved them.
type ConflictHandler func(ctx context.Context, paths []string) (bool, error)

// Repository is a git repository on disk
type Repository struct {
	root     string
	repo     *git.Repository
	executor executor.CommandExecutor
	git      string
	logger   *logger.Logger

	status   singleflight.Group
	conflict ConflictHandler
}

// Option configures a Repository
type Option func(*Repository)

// WithGit sets the git binary used for writes
func WithGit(bin string) Option {
	return func(r *Repository) {
		if bin != "" {
			r.git = bin
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConflictHandler sets the handler consulted when conflicts remain
func WithConflictHandler(h ConflictHandler) Option {
	return func(r *Repository) {
		r.conflict = h
	}
}

// Open opens the repository containing dir
func Open(dir string, exec executor.CommandExecutor, opts ...Option) (*Repository, error) {
	if dir == "" {
		dir = "."
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	w, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	r := &Repository{
		root:     w.Filesystem.Root(),
		repo:     repo,
		executor: exec,
		git:      "git",
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the worktree root
func (r *Repository) Root() string {
	return r.root
}

func (r *Repository) abs(path string) string {
	return filepath.Join(r.root, filepath.FromSlash(path))
}

// run executes git in the worktree root and returns its trimmed output
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", r.root}, args...)
	r.logger.Debug("%s %v", r.git, full)
	out, err := r.executor.Execute(ctx, r.git, full...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out = exitErr.Stderr
		}
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return string(out), nil
}
