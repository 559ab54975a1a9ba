package patch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/syou6162/git-line-patch/internal/diffmodel"
	"github.com/syou6162/git-line-patch/internal/selection"
)

// unifiedDiff generates a diff between two newline-terminated texts
func unifiedDiff(t *testing.T, path, oldText, newText string, context int) string {
	t.Helper()
	ud := difflib.UnifiedDiff{
		A:        splitLines(oldText),
		B:        splitLines(newText),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  context,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	require.NoError(t, err)
	return "diff --git a/" + path + " b/" + path + "\n" + text
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func parse(t *testing.T, text string) *diffmodel.Document {
	t.Helper()
	doc, err := diffmodel.Parse(text)
	require.NoError(t, err)
	return doc
}

// lineRange selects the first diff line equal to line
func lineRange(t *testing.T, text, line string) selection.Range {
	t.Helper()
	idx := strings.Index("\n"+text, "\n"+line+"\n")
	require.GreaterOrEqual(t, idx, 0, "line %q not found", line)
	return selection.Range{Start: idx, Length: len(line)}
}

// applyPatch applies p to src in memory, reversed when reverse is set
func applyPatch(t *testing.T, src string, p []byte, reverse bool) string {
	t.Helper()
	files, _, err := gitdiff.Parse(bytes.NewReader(p))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	if reverse {
		f = reversed(f)
	}
	var out bytes.Buffer
	require.NoError(t, gitdiff.Apply(&out, strings.NewReader(src), f))
	return out.String()
}

func reversed(f *gitdiff.File) *gitdiff.File {
	r := *f
	r.IsNew, r.IsDelete = f.IsDelete, f.IsNew
	r.OldName, r.NewName = f.NewName, f.OldName
	r.TextFragments = nil
	for _, frag := range f.TextFragments {
		rf := *frag
		rf.OldPosition, rf.NewPosition = frag.NewPosition, frag.OldPosition
		rf.OldLines, rf.NewLines = frag.NewLines, frag.OldLines
		rf.LinesAdded, rf.LinesDeleted = frag.LinesDeleted, frag.LinesAdded
		rf.Lines = make([]gitdiff.Line, len(frag.Lines))
		for i, l := range frag.Lines {
			switch l.Op {
			case gitdiff.OpAdd:
				l.Op = gitdiff.OpDelete
			case gitdiff.OpDelete:
				l.Op = gitdiff.OpAdd
			}
			rf.Lines[i] = l
		}
		r.TextFragments = append(r.TextFragments, &rf)
	}
	return &r
}
