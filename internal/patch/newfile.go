package patch

import (
	"github.com/syou6162/git-line-patch/internal/diffmodel"
	"github.com/syou6162/git-line-patch/internal/patcherr"
	"github.com/syou6162/git-line-patch/internal/selection"
)

const nullObjectID = "0000000"

// NewFile describes a file without diff metadata, shown as plain text
type NewFile struct {
	Path string
	Text string
	// Preamble holds bytes stripped from the start of the file, such as a byte-order mark
	Preamble []byte
	// TreeID is the object id of the indexed content. It is required when
	// reversing against the index.
	TreeID string
}

// FromNewFile builds a patch of the selected lines of a new file. Forward
// creates the file with exactly those lines; Reverse removes them and keeps
// the rest as context, deleting the file when every line is selected. The
// polarity is carried by the content, so the patch is applied without
// --reverse. A nil result means nothing was selected.
func FromNewFile(file NewFile, r selection.Range, polarity Polarity, indexTarget bool, opts Options) ([]byte, error) {
	sel := selection.Lines(file.Text, r)
	if sel.Count() == 0 {
		return nil, nil
	}
	if polarity == Reverse && indexTarget && file.TreeID == "" {
		return nil, patcherr.NewMissingTreeReferenceError(file.Path)
	}
	deleted := polarity == Reverse && sel.Count() == len(sel.Lines)

	var lines []diffmodel.Line
	for i, tl := range sel.Lines {
		l := diffmodel.Line{Content: tl.Text, Offset: tl.Offset, Length: tl.Length, NoNewline: !tl.Terminated}
		switch {
		case sel.Touched[i] && polarity == Forward:
			l.Kind = diffmodel.Added
		case sel.Touched[i]:
			l.Kind = diffmodel.Removed
		case polarity == Forward:
			continue
		default:
			l.Kind = diffmodel.Context
		}
		lines = append(lines, l)
	}

	h := &diffmodel.Hunk{Lines: reconcileNoNewline(lines)}
	h.Recount()
	if polarity == Forward {
		h.NewStart = startOf(1, h.NewCount)
	} else {
		h.OldStart = startOf(1, h.OldCount)
		h.NewStart = startOf(1, h.NewCount)
	}

	w := newWriter(opts.Encoding)
	w.headerf("diff --git a/%s b/%s", file.Path, file.Path)
	if polarity == Forward {
		w.header("new file mode " + defaultFileMode)
		w.headerf("index %s..%s", nullObjectID, nullObjectID)
		w.header("--- /dev/null")
	} else {
		if deleted {
			w.header("deleted file mode " + defaultFileMode)
		}
		if file.TreeID != "" {
			w.headerf("index %s..%s", file.TreeID, nullObjectID)
		}
		w.header("--- a/" + file.Path)
	}
	if deleted {
		w.header("+++ /dev/null")
	} else {
		w.header("+++ b/" + file.Path)
	}

	w.header(h.Header())
	for _, l := range h.Lines {
		var prefix []byte
		if l.Offset == 0 {
			prefix = file.Preamble
		}
		if err := w.line(l.Kind, prefix, l.Content, l.NoNewline); err != nil {
			return nil, err
		}
	}
	return w.bytes(), nil
}
