// Package selection maps a character range of the displayed text onto the
// diff lines it touches.
package selection

import (
	"sort"

	"github.com/syou6162/git-line-patch/internal/diffmodel"
)

// AllText is the Length of a Range that covers the whole text
const AllText = -1

// Range is a half-open character range [Start, Start+Length) of the displayed text
type Range struct {
	Start  int
	Length int
}

// All returns the range that touches every line
func All() Range {
	return Range{Length: AllText}
}

// IsAll reports whether r is the whole-text sentinel
func (r Range) IsAll() bool {
	return r.Length == AllText
}

// IsEmpty reports whether r selects nothing
func (r Range) IsEmpty() bool {
	return !r.IsAll() && r.Length <= 0
}

// Touches reports whether a line starting at offset with length characters
// intersects r. The newline terminating the line belongs to it, so a
// selection starting mid-line or on its terminator takes the whole line.
func (r Range) Touches(offset, length int) bool {
	if r.IsAll() {
		return true
	}
	if r.IsEmpty() {
		return false
	}
	end := offset + length + 1
	return offset < r.Start+r.Length && r.Start < end
}

// TouchedHunk is a hunk with at least one line touched by a selection
type TouchedHunk struct {
	Hunk *diffmodel.Hunk
	// Index is the position of the hunk in its document
	Index int
	// Lines holds the indices into Hunk.Lines that the selection touches
	Lines map[int]bool
}

// IsTouched reports whether line i of the hunk was selected
func (t TouchedHunk) IsTouched(i int) bool {
	return t.Lines[i]
}

// TouchedIndices returns the touched line indices in ascending order
func (t TouchedHunk) TouchedIndices() []int {
	idx := make([]int, 0, len(t.Lines))
	for i := range t.Lines {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// HasTouchedChanges reports whether an added or removed line was selected
func (t TouchedHunk) HasTouchedChanges() bool {
	for i := range t.Lines {
		if t.Hunk.Lines[i].Kind.IsChange() {
			return true
		}
	}
	return false
}

// Map returns the hunks of doc touched by r, in document order.
// Hunks without a touched line are omitted.
func Map(doc *diffmodel.Document, r Range) []TouchedHunk {
	var touched []TouchedHunk
	if doc == nil || r.IsEmpty() {
		return touched
	}
	for hi, h := range doc.Hunks {
		lines := make(map[int]bool)
		for li, l := range h.Lines {
			if r.Touches(l.Offset, l.Length) {
				lines[li] = true
			}
		}
		if len(lines) > 0 {
			touched = append(touched, TouchedHunk{Hunk: h, Index: hi, Lines: lines})
		}
	}
	return touched
}

// TextSelection is a whole-file text split into lines with the touched ones marked
type TextSelection struct {
	Lines   []diffmodel.TextLine
	Touched map[int]bool
}

// Count returns the number of touched lines
func (s TextSelection) Count() int {
	return len(s.Touched)
}

// Lines maps r onto a text without diff headers, such as a new file's content
func Lines(text string, r Range) TextSelection {
	sel := TextSelection{
		Lines:   diffmodel.SplitText(text),
		Touched: make(map[int]bool),
	}
	if r.IsEmpty() {
		return sel
	}
	for i, l := range sel.Lines {
		if r.Touches(l.Offset, l.Length) {
			sel.Touched[i] = true
		}
	}
	return sel
}
