package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// IndexBlobID returns the object id of the staged content of path
func (r *Repository) IndexBlobID(ctx context.Context, path string) (string, error) {
	entry, err := r.indexEntry(path)
	if err != nil {
		return "", err
	}
	return entry.Hash.String(), nil
}

// RevisionBlobID returns the object id of path in the tree of rev
func (r *Repository) RevisionBlobID(ctx context.Context, rev, path string) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("failed to read commit %s: %w", hash, err)
	}
	file, err := commit.File(path)
	if err != nil {
		return "", fmt.Errorf("%s is not in %s: %w", path, rev, err)
	}
	return file.Hash.String(), nil
}

// IndexContent returns the staged content of path
func (r *Repository) IndexContent(ctx context.Context, path string) ([]byte, error) {
	entry, err := r.indexEntry(path)
	if err != nil {
		return nil, err
	}
	blob, err := r.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", entry.Hash, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

func (r *Repository) indexEntry(path string) (*index.Entry, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	entry, err := idx.Entry(path)
	if errors.Is(err, index.ErrEntryNotFound) {
		return nil, fmt.Errorf("%s is not in the index", path)
	}
	if err != nil {
		return nil, err
	}
	if entry.IntentToAdd {
		return nil, fmt.Errorf("%s is only marked intent-to-add", path)
	}
	return entry, nil
}
