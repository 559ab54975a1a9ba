package diffmodel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/syou6162/git-line-patch/internal/patcherr"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)

// TextLine is one line of displayed text with its character position
type TextLine struct {
	Text   string
	Offset int
	Length int
	// Terminated is false for a final line without "\n"
	Terminated bool
}

// SplitText splits text on "\n" and records each line's character offset.
// A trailing "\n" does not produce an empty final line.
func SplitText(text string) []TextLine {
	var lines []TextLine
	offset := 0
	for len(text) > 0 {
		idx := strings.IndexByte(text, '\n')
		line := TextLine{Offset: offset, Terminated: idx >= 0}
		if idx < 0 {
			line.Text = text
			text = ""
		} else {
			line.Text = text[:idx]
			text = text[idx+1:]
		}
		line.Length = utf8.RuneCountInString(line.Text)
		offset += line.Length
		if line.Terminated {
			offset++
		}
		lines = append(lines, line)
	}
	return lines
}

// Parse parses the unified diff of a single file.
// It fails with a malformed diff error when a hunk header cannot be decoded,
// when a hunk's lines disagree with its header counts, or when hunks overlap.
// A second "diff --git" header after the first file's hunks ends the document.
func Parse(text string) (*Document, error) {
	doc := &Document{}
	var cur *Hunk
	oldLeft, newLeft := 0, 0

	finish := func(lineNo int) error {
		if cur == nil {
			return nil
		}
		if oldLeft != 0 || newLeft != 0 {
			return patcherr.NewMalformedDiffError(lineNo,
				fmt.Sprintf("hunk %q is missing %d old and %d new lines", cur.Header(), oldLeft, newLeft))
		}
		return nil
	}

scan:
	for i, tl := range SplitText(text) {
		lineNo := i + 1
		raw := tl.Text
		switch {
		case strings.HasPrefix(raw, "@@"):
			if err := finish(lineNo); err != nil {
				return nil, err
			}
			h, err := parseHunkHeader(raw, lineNo)
			if err != nil {
				return nil, err
			}
			if n := len(doc.Hunks); n > 0 {
				prev := doc.Hunks[n-1]
				if h.OldStart < prev.OldStart+prev.OldCount {
					return nil, patcherr.NewMalformedDiffError(lineNo,
						fmt.Sprintf("hunk %q overlaps or precedes %q", h.Header(), prev.Header()))
				}
			}
			h.Offset = tl.Offset
			doc.Hunks = append(doc.Hunks, h)
			cur = h
			oldLeft, newLeft = h.OldCount, h.NewCount

		case cur == nil:
			doc.Preamble = append(doc.Preamble, raw)

		case strings.HasPrefix(raw, `\`):
			if len(cur.Lines) == 0 {
				return nil, patcherr.NewMalformedDiffError(lineNo, "no-newline marker before any hunk line")
			}
			cur.Lines[len(cur.Lines)-1].NoNewline = true

		case oldLeft == 0 && newLeft == 0:
			if strings.HasPrefix(raw, "diff --git ") {
				break scan
			}
			if strings.TrimSpace(raw) == "" {
				continue
			}
			return nil, patcherr.NewMalformedDiffError(lineNo,
				fmt.Sprintf("line outside of hunk %q", cur.Header()))

		default:
			line := Line{Offset: tl.Offset, Length: tl.Length}
			switch {
			case raw == "":
				line.Kind = Context
			case raw[0] == '+':
				line.Kind = Added
				line.Content = raw[1:]
			case raw[0] == '-':
				line.Kind = Removed
				line.Content = raw[1:]
			default:
				line.Kind = Context
				line.Content = raw[1:]
			}
			if line.Kind != Added {
				oldLeft--
			}
			if line.Kind != Removed {
				newLeft--
			}
			if oldLeft < 0 || newLeft < 0 {
				return nil, patcherr.NewMalformedDiffError(lineNo,
					fmt.Sprintf("hunk %q has more lines than its header declares", cur.Header()))
			}
			cur.Lines = append(cur.Lines, line)
		}
	}

	if err := finish(len(SplitText(text)) + 1); err != nil {
		return nil, err
	}

	parsePreamble(doc)
	return doc, nil
}

func parseHunkHeader(raw string, lineNo int) (*Hunk, error) {
	m := hunkHeaderRe.FindStringSubmatch(strings.TrimSuffix(raw, "\r"))
	if m == nil {
		return nil, patcherr.NewMalformedDiffError(lineNo, fmt.Sprintf("invalid hunk header %q", raw))
	}

	atoi := func(s string, def int) (int, error) {
		if s == "" {
			return def, nil
		}
		return strconv.Atoi(s)
	}

	h := &Hunk{Section: m[5]}
	var err error
	if h.OldStart, err = atoi(m[1], 0); err != nil {
		return nil, patcherr.NewMalformedDiffError(lineNo, err.Error())
	}
	if h.OldCount, err = atoi(m[2], 1); err != nil {
		return nil, patcherr.NewMalformedDiffError(lineNo, err.Error())
	}
	if h.NewStart, err = atoi(m[3], 0); err != nil {
		return nil, patcherr.NewMalformedDiffError(lineNo, err.Error())
	}
	if h.NewCount, err = atoi(m[4], 1); err != nil {
		return nil, patcherr.NewMalformedDiffError(lineNo, err.Error())
	}
	return h, nil
}

// parsePreamble fills the file metadata of doc from its header lines
func parsePreamble(doc *Document) {
	for _, raw := range doc.Preamble {
		line := strings.TrimSuffix(raw, "\r")
		switch {
		case strings.HasPrefix(line, "diff --git "):
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				doc.OldName = strings.TrimPrefix(parts[2], "a/")
				doc.NewName = strings.TrimPrefix(parts[3], "b/")
			}
		case strings.HasPrefix(line, "new file mode"):
			doc.IsNew = true
		case strings.HasPrefix(line, "deleted file mode"):
			doc.IsDelete = true
		case strings.HasPrefix(line, "rename from "):
			doc.IsRename = true
			doc.OldName = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			doc.IsRename = true
			doc.NewName = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "--- "):
			if name, ok := headerName(line[4:], "a/"); ok {
				doc.OldName = name
			} else {
				doc.IsNew = true
			}
		case strings.HasPrefix(line, "+++ "):
			if name, ok := headerName(line[4:], "b/"); ok {
				doc.NewName = name
			} else {
				doc.IsDelete = true
			}
		}
	}
	if doc.IsNew && doc.OldName == "" {
		doc.OldName = doc.NewName
	}
	if doc.IsDelete && doc.NewName == "" {
		doc.NewName = doc.OldName
	}
}

// headerName extracts the path of a ---/+++ line; ok is false for /dev/null
func headerName(s, prefix string) (string, bool) {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	if s == "/dev/null" {
		return "", false
	}
	return strings.TrimPrefix(s, prefix), true
}
