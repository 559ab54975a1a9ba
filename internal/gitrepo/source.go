package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/text/encoding"

	"github.com/syou6162/git-line-patch/internal/operation"
	"github.com/syou6162/git-line-patch/internal/patch"
	"github.com/syou6162/git-line-patch/internal/patcherr"
)

var byteOrderMarks = [][]byte{
	{0xef, 0xbb, 0xbf},
	{0xff, 0xfe},
	{0xfe, 0xff},
}

// Source is the text of a whole file as it is displayed
type Source struct {
	Text string
	// Preamble is the byte-order mark stripped from the content
	Preamble []byte
}

// DiffText returns the diff git shows for path. Committed diffs need the
// revision that introduced them.
func (r *Repository) DiffText(ctx context.Context, path string, status operation.StagedStatus, rev string, enc encoding.Encoding) (string, error) {
	var args []string
	switch status {
	case operation.StatusWorkTree:
		args = []string{"diff", "--no-color", "--no-ext-diff", "--", path}
	case operation.StatusIndex:
		args = []string{"diff", "--no-color", "--no-ext-diff", "--cached", "--", path}
	case operation.StatusCommitted:
		if rev == "" {
			return "", fmt.Errorf("a revision is required for the committed diff of %s", path)
		}
		args = []string{"show", "--no-color", "--no-ext-diff", "--format=", rev, "--", path}
	default:
		return "", fmt.Errorf("no diff for %s with status %s", path, status)
	}

	out, err := r.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return decode([]byte(out), enc)
}

// FileText returns the content of a new file: the staged content for an
// Index status, the worktree content otherwise.
func (r *Repository) FileText(ctx context.Context, path string, status operation.StagedStatus, enc encoding.Encoding) (*Source, error) {
	var (
		data []byte
		err  error
	)
	if status == operation.StatusIndex {
		data, err = r.IndexContent(ctx, path)
	} else {
		data, err = os.ReadFile(r.abs(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewSource(data, enc)
}

// NewSource splits a leading byte-order mark from data and decodes the rest
func NewSource(data []byte, enc encoding.Encoding) (*Source, error) {
	src := &Source{}
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(data, bom) {
			src.Preamble = append([]byte(nil), bom...)
			data = data[len(bom):]
			break
		}
	}

	text, err := decode(data, enc)
	if err != nil {
		return nil, err
	}
	src.Text = text
	return src, nil
}

func decode(data []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		return string(data), nil
	}
	text, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", patcherr.NewEncodingError(patch.EncodingName(enc), err)
	}
	return string(text), nil
}
