// Package diffmodel parses the unified diff shown to the user into hunks and
// lines that remember where they sit in the displayed text.
package diffmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a line within a hunk
type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "context"
	}
}

// Prefix returns the unified diff prefix character of the kind
func (k Kind) Prefix() byte {
	switch k {
	case Added:
		return '+'
	case Removed:
		return '-'
	default:
		return ' '
	}
}

// IsChange reports whether the kind is Added or Removed
func (k Kind) IsChange() bool {
	return k != Context
}

// NoNewlineMarker follows a line that has no terminating newline
const NoNewlineMarker = `\ No newline at end of file`

// Line is a single line of a hunk
type Line struct {
	Kind Kind
	// Content excludes the prefix character and the "\n" terminator.
	// A trailing "\r" is kept so CRLF files round-trip byte for byte.
	Content string
	// Offset is the character offset of the prefix in the displayed text
	Offset int
	// Length is the number of characters of the line, prefix included
	Length    int
	NoNewline bool
}

// Raw returns the line as it appears in a unified diff
func (l Line) Raw() string {
	return string(l.Kind.Prefix()) + l.Content
}

// Hunk is a contiguous block of a unified diff
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	// Section is the text following the closing "@@", usually a function name
	Section string
	// Offset is the character offset of the "@@" header in the displayed text
	Offset int
	Lines  []Line
}

// Recount recomputes OldCount and NewCount from the lines
func (h *Hunk) Recount() {
	h.OldCount, h.NewCount = 0, 0
	for _, l := range h.Lines {
		switch l.Kind {
		case Context:
			h.OldCount++
			h.NewCount++
		case Removed:
			h.OldCount++
		case Added:
			h.NewCount++
		}
	}
}

// HasChanges reports whether the hunk contains added or removed lines
func (h *Hunk) HasChanges() bool {
	for _, l := range h.Lines {
		if l.Kind.IsChange() {
			return true
		}
	}
	return false
}

// Header formats the "@@" line of the hunk
func (h *Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@%s",
		formatRange(h.OldStart, h.OldCount),
		formatRange(h.NewStart, h.NewCount),
		h.Section)
}

func formatRange(start, count int) string {
	if count == 1 {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// Document is the parsed form of one file's unified diff
type Document struct {
	// Preamble holds the lines before the first hunk verbatim
	Preamble []string
	Hunks    []*Hunk

	OldName  string
	NewName  string
	IsNew    bool
	IsDelete bool
	IsRename bool
}

// Path returns the name of the file on the side that exists
func (d *Document) Path() string {
	if d.IsDelete || d.NewName == "" {
		return d.OldName
	}
	return d.NewName
}

// Lines returns the total number of hunk lines
func (d *Document) Lines() int {
	n := 0
	for _, h := range d.Hunks {
		n += len(h.Lines)
	}
	return n
}

// ToText renders the document back to unified diff text
func ToText(d *Document) string {
	var sb strings.Builder
	for _, line := range d.Preamble {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	for _, h := range d.Hunks {
		sb.WriteString(h.Header())
		sb.WriteByte('\n')
		for _, l := range h.Lines {
			sb.WriteString(l.Raw())
			sb.WriteByte('\n')
			if l.NoNewline {
				sb.WriteString(NoNewlineMarker)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
