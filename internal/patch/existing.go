// Package patch synthesizes minimal patches from the lines a user selected in
// a displayed diff or file.
package patch

import (
	"errors"
	"strings"

	"github.com/syou6162/git-line-patch/internal/diffmodel"
	"github.com/syou6162/git-line-patch/internal/patcherr"
	"github.com/syou6162/git-line-patch/internal/selection"
)

// Polarity is the direction a line patch is applied in
type Polarity int

const (
	// Forward patches use the old side as base and apply without --reverse
	Forward Polarity = iota
	// Reverse patches use the new side as base and apply with --reverse
	Reverse
)

// String returns the string representation of Polarity
func (p Polarity) String() string {
	if p == Reverse {
		return "reverse"
	}
	return "forward"
}

// FromExistingHunks builds a patch of the touched lines of a tracked file's diff.
// Untouched change lines are never emitted as changes: the ones present in the
// patch base (removed lines for Forward, added lines for Reverse) become
// context, the others are dropped. indexTarget marks a diff of staged changes.
// A nil result means nothing was selected.
func FromExistingHunks(doc *diffmodel.Document, touched []selection.TouchedHunk, polarity Polarity, indexTarget bool, opts Options) ([]byte, error) {
	hunks := filterHunks(touched, polarity, func(th selection.TouchedHunk) *diffmodel.Hunk {
		return th.Hunk
	})
	if len(hunks) == 0 {
		return nil, nil
	}

	header, err := existingHeader(doc, polarity, indexTarget, isComplete(doc, touched), opts)
	if err != nil {
		return nil, err
	}
	return render(header, hunks, opts)
}

// FromWorkTreeReset builds a patch that restores the touched lines of a
// worktree diff to their committed state. The patch is already reversed and
// applies forward against the worktree.
func FromWorkTreeReset(doc *diffmodel.Document, touched []selection.TouchedHunk, opts Options) ([]byte, error) {
	hunks := filterHunks(touched, Forward, func(th selection.TouchedHunk) *diffmodel.Hunk {
		return invert(th.Hunk)
	})
	if len(hunks) == 0 {
		return nil, nil
	}

	header, err := resetHeader(doc, isComplete(doc, touched), opts)
	if err != nil {
		return nil, err
	}
	return render(header, hunks, opts)
}

func render(header []string, hunks []*diffmodel.Hunk, opts Options) ([]byte, error) {
	w := newWriter(opts.Encoding)
	for _, line := range header {
		w.header(line)
	}
	for _, h := range hunks {
		if err := w.hunk(h); err != nil {
			return nil, err
		}
	}
	return w.bytes(), nil
}

// filterHunks filters every touched hunk and renumbers the survivors.
// source returns the hunk to filter, which may be a transformed copy.
func filterHunks(touched []selection.TouchedHunk, polarity Polarity, source func(selection.TouchedHunk) *diffmodel.Hunk) []*diffmodel.Hunk {
	var hunks []*diffmodel.Hunk
	offset := 0
	for _, th := range touched {
		h := source(th)
		lines := filterLines(h.Lines, th.IsTouched, polarity)
		nh := &diffmodel.Hunk{Section: h.Section, Lines: reconcileNoNewline(lines)}
		if !nh.HasChanges() {
			continue
		}
		nh.Recount()

		if polarity == Forward {
			base := anchor(h.OldStart, h.OldCount)
			nh.OldStart = startOf(base, nh.OldCount)
			nh.NewStart = startOf(base+offset, nh.NewCount)
			offset += nh.NewCount - nh.OldCount
		} else {
			base := anchor(h.NewStart, h.NewCount)
			nh.NewStart = startOf(base, nh.NewCount)
			nh.OldStart = startOf(base+offset, nh.OldCount)
			offset += nh.OldCount - nh.NewCount
		}
		hunks = append(hunks, nh)
	}
	return hunks
}

// anchor returns the line position a hunk range refers to. An empty range
// names the line before the insertion point.
func anchor(start, count int) int {
	if count == 0 {
		return start + 1
	}
	return start
}

func startOf(position, count int) int {
	if count == 0 {
		return position - 1
	}
	return position
}

// filterLines keeps context lines and touched changes. Untouched changes of
// the base side become context, the rest are dropped.
func filterLines(lines []diffmodel.Line, touched func(int) bool, polarity Polarity) []diffmodel.Line {
	baseKind := diffmodel.Removed
	if polarity == Reverse {
		baseKind = diffmodel.Added
	}

	out := make([]diffmodel.Line, 0, len(lines))
	for i := 0; i < len(lines); {
		if !lines[i].Kind.IsChange() {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && lines[j].Kind.IsChange() {
			j++
		}
		out = append(out, filterBlock(lines[i:j], i, touched, baseKind)...)
		i = j
	}
	return out
}

// filterBlock filters one run of change lines starting at index first.
// Converted context before the first touched change stays in front of it,
// the rest follows the touched additions.
func filterBlock(block []diffmodel.Line, first int, touched func(int) bool, baseKind diffmodel.Kind) []diffmodel.Line {
	var pre, removed, added, post []diffmodel.Line
	seen := false
	for k, l := range block {
		if touched(first + k) {
			seen = true
			if l.Kind == diffmodel.Removed {
				removed = append(removed, l)
			} else {
				added = append(added, l)
			}
			continue
		}
		if l.Kind != baseKind {
			continue
		}
		l.Kind = diffmodel.Context
		if seen {
			post = append(post, l)
		} else {
			pre = append(pre, l)
		}
	}

	out := make([]diffmodel.Line, 0, len(pre)+len(removed)+len(added)+len(post))
	out = append(out, pre...)
	out = append(out, removed...)
	out = append(out, added...)
	return append(out, post...)
}

// reconcileNoNewline keeps "\ No newline" markers on the last line of each side.
// A marked context line that no longer ends both sides is split into a
// removed and an added line.
func reconcileNoNewline(lines []diffmodel.Line) []diffmodel.Line {
	lastOld, lastNew := -1, -1
	for i, l := range lines {
		if l.Kind != diffmodel.Added {
			lastOld = i
		}
		if l.Kind != diffmodel.Removed {
			lastNew = i
		}
	}

	out := make([]diffmodel.Line, 0, len(lines)+1)
	for i, l := range lines {
		switch l.Kind {
		case diffmodel.Context:
			if l.NoNewline && (i != lastOld || i != lastNew) {
				removed, added := l, l
				removed.Kind, removed.NoNewline = diffmodel.Removed, i == lastOld
				added.Kind, added.NoNewline = diffmodel.Added, i == lastNew
				out = append(out, removed, added)
				continue
			}
		case diffmodel.Removed:
			l.NoNewline = l.NoNewline && i == lastOld
		case diffmodel.Added:
			l.NoNewline = l.NoNewline && i == lastNew
		}
		out = append(out, l)
	}
	return out
}

// invert swaps the sides of a hunk
func invert(h *diffmodel.Hunk) *diffmodel.Hunk {
	inv := &diffmodel.Hunk{
		OldStart: h.NewStart,
		OldCount: h.NewCount,
		NewStart: h.OldStart,
		NewCount: h.OldCount,
		Section:  h.Section,
		Offset:   h.Offset,
		Lines:    make([]diffmodel.Line, len(h.Lines)),
	}
	for i, l := range h.Lines {
		switch l.Kind {
		case diffmodel.Added:
			l.Kind = diffmodel.Removed
		case diffmodel.Removed:
			l.Kind = diffmodel.Added
		}
		inv.Lines[i] = l
	}
	return inv
}

// isComplete reports whether every change line of doc was touched
func isComplete(doc *diffmodel.Document, touched []selection.TouchedHunk) bool {
	byIndex := make(map[int]selection.TouchedHunk, len(touched))
	for _, th := range touched {
		byIndex[th.Index] = th
	}
	for hi, h := range doc.Hunks {
		th, ok := byIndex[hi]
		for li, l := range h.Lines {
			if l.Kind.IsChange() && (!ok || !th.IsTouched(li)) {
				return false
			}
		}
	}
	return true
}

var errNoFileName = errors.New("diff names no file")

func targetPath(doc *diffmodel.Document, opts Options) (string, error) {
	if p := doc.Path(); p != "" {
		return p, nil
	}
	if opts.Path != "" {
		return opts.Path, nil
	}
	return "", patcherr.NewInvalidPatchError(errNoFileName)
}

// existingHeader returns the file header of the displayed diff, corrected so
// that a partial selection of a created or deleted file does not claim to
// create or delete it.
func existingHeader(doc *diffmodel.Document, polarity Polarity, indexTarget, complete bool, opts Options) ([]string, error) {
	path, err := targetPath(doc, opts)
	if err != nil {
		return nil, err
	}

	pre := fileHeaderLines(doc.Preamble)
	if !hasNameLines(pre) {
		return []string{
			"diff --git a/" + path + " b/" + path,
			"--- a/" + path,
			"+++ b/" + path,
		}, nil
	}

	newFilePartial := doc.IsNew && polarity == Reverse && indexTarget && !complete
	deletedPartial := doc.IsDelete && polarity == Forward && !complete
	renamed := doc.IsRename || opts.Renamed

	header := make([]string, 0, len(pre))
	for _, raw := range pre {
		line := strings.TrimSuffix(raw, "\r")
		switch {
		case renamed && strings.HasPrefix(line, "diff --git "):
			header = append(header, "diff --git a/"+path+" b/"+path)
		case renamed && isRenameLine(line):
		case renamed && strings.HasPrefix(line, "--- ") && line != "--- /dev/null":
			header = append(header, "--- a/"+path)
		case renamed && strings.HasPrefix(line, "+++ ") && line != "+++ /dev/null":
			header = append(header, "+++ b/"+path)
		case newFilePartial && strings.HasPrefix(line, "new file mode"):
		case newFilePartial && line == "--- /dev/null":
			header = append(header, "--- a/"+path)
		case deletedPartial && strings.HasPrefix(line, "deleted file mode"):
		case deletedPartial && line == "+++ /dev/null":
			header = append(header, "+++ b/"+path)
		default:
			header = append(header, raw)
		}
	}
	return header, nil
}

// resetHeader names the worktree file on both sides. A deleted file is
// recreated; a new file whose every line is reset is deleted. The index line
// is carried over with its object ids swapped: the patch base is the new
// side of the diff, which a three-way apply needs to find.
func resetHeader(doc *diffmodel.Document, complete bool, opts Options) ([]string, error) {
	path, err := targetPath(doc, opts)
	if err != nil {
		return nil, err
	}

	header := []string{"diff --git a/" + path + " b/" + path}
	index, hasIndex := swappedIndexLine(fileHeaderLines(doc.Preamble))
	switch {
	case doc.IsDelete:
		header = append(header, "new file mode "+fileMode(doc.Preamble, "deleted file mode "), "--- /dev/null", "+++ b/"+path)
	case doc.IsNew && complete:
		header = append(header, "deleted file mode "+fileMode(doc.Preamble, "new file mode "))
		if hasIndex {
			header = append(header, index)
		}
		header = append(header, "--- a/"+path, "+++ /dev/null")
	default:
		if hasIndex && !doc.IsNew {
			header = append(header, index)
		}
		header = append(header, "--- a/"+path, "+++ b/"+path)
	}
	return header, nil
}

// swappedIndexLine returns the "index <old>..<new> [mode]" line of header as
// "index <new>..<old> [mode]"
func swappedIndexLine(header []string) (string, bool) {
	for _, raw := range header {
		line := strings.TrimSuffix(raw, "\r")
		if !strings.HasPrefix(line, "index ") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "index "))
		if len(fields) == 0 {
			return "", false
		}
		ids := strings.SplitN(fields[0], "..", 2)
		if len(ids) != 2 || ids[0] == "" || ids[1] == "" {
			return "", false
		}
		fields[0] = ids[1] + ".." + ids[0]
		return "index " + strings.Join(fields, " "), true
	}
	return "", false
}

// fileHeaderLines drops preamble lines before the file header, such as
// commit information of a historical diff
func fileHeaderLines(preamble []string) []string {
	for i, line := range preamble {
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "--- ") {
			return preamble[i:]
		}
	}
	return nil
}

func hasNameLines(header []string) bool {
	hasOld, hasNew := false, false
	for _, line := range header {
		hasOld = hasOld || strings.HasPrefix(line, "--- ")
		hasNew = hasNew || strings.HasPrefix(line, "+++ ")
	}
	return hasOld && hasNew
}

func isRenameLine(line string) bool {
	for _, prefix := range []string{"rename from ", "rename to ", "similarity index ", "dissimilarity index "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func fileMode(preamble []string, prefix string) string {
	for _, raw := range preamble {
		line := strings.TrimSuffix(raw, "\r")
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return defaultFileMode
}

const defaultFileMode = "100644"
