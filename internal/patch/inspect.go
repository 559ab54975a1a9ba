package patch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	sgdiff "github.com/sourcegraph/go-diff/diff"

	"github.com/syou6162/git-line-patch/internal/patcherr"
)

// FileOperation represents the type of file operation a patch performs
type FileOperation int

const (
	FileOperationModified FileOperation = iota
	FileOperationAdded
	FileOperationDeleted
	FileOperationRenamed
)

// String returns the string representation of FileOperation
func (o FileOperation) String() string {
	switch o {
	case FileOperationAdded:
		return "added"
	case FileOperationDeleted:
		return "deleted"
	case FileOperationRenamed:
		return "renamed"
	default:
		return "modified"
	}
}

// FileInfo describes the file a synthesized patch touches
type FileInfo struct {
	Path      string
	OldPath   string
	Operation FileOperation
	Fragments int
}

// Stats counts the changes of a patch
type Stats struct {
	Hunks      int
	Insertions int
	Deletions  int
}

// String formats the stats like git's shortstat
func (s Stats) String() string {
	return fmt.Sprintf("%d hunk(s), %d insertion(s)(+), %d deletion(s)(-)", s.Hunks, s.Insertions, s.Deletions)
}

func parseSingleFile(p []byte) (*gitdiff.File, error) {
	files, _, err := gitdiff.Parse(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	if len(files) != 1 {
		return nil, fmt.Errorf("patch touches %d files, want 1", len(files))
	}
	return files[0], nil
}

// Validate checks that a synthesized patch parses as a single file diff and
// that every fragment's header agrees with its lines
func Validate(p []byte) error {
	file, err := parseSingleFile(p)
	if err != nil {
		return patcherr.NewInvalidPatchError(err)
	}
	if len(file.TextFragments) == 0 && !file.IsNew && !file.IsDelete {
		return patcherr.NewInvalidPatchError(errors.New("patch has no fragments"))
	}
	for _, frag := range file.TextFragments {
		if err := frag.Validate(); err != nil {
			return patcherr.NewInvalidPatchError(fmt.Errorf("fragment %s: %w", frag.Header(), err))
		}
	}
	return nil
}

// Inspect reports which file a patch touches and how
func Inspect(p []byte) (*FileInfo, error) {
	file, err := parseSingleFile(p)
	if err != nil {
		return nil, patcherr.NewInvalidPatchError(err)
	}

	info := &FileInfo{
		Path:      file.NewName,
		OldPath:   file.OldName,
		Fragments: len(file.TextFragments),
	}
	switch {
	case file.IsDelete:
		info.Operation = FileOperationDeleted
		info.Path = file.OldName
	case file.IsNew:
		info.Operation = FileOperationAdded
		info.OldPath = ""
	case file.IsRename:
		info.Operation = FileOperationRenamed
	default:
		info.Operation = FileOperationModified
	}
	return info, nil
}

// CountChanges returns the hunk and line counts of a patch
func CountChanges(p []byte) (Stats, error) {
	fd, err := sgdiff.ParseFileDiff(p)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to parse patch for stats: %w", err)
	}

	stats := Stats{Hunks: len(fd.Hunks)}
	for _, h := range fd.Hunks {
		for _, line := range bytes.Split(h.Body, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case '+':
				stats.Insertions++
			case '-':
				stats.Deletions++
			}
		}
	}
	return stats, nil
}
