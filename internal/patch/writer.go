package patch

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/syou6162/git-line-patch/internal/diffmodel"
	"github.com/syou6162/git-line-patch/internal/patcherr"
)

// Options carries the file facts a synthesized patch depends on
type Options struct {
	// Encoding of the target file. Nil writes line content unchanged (UTF-8).
	Encoding encoding.Encoding
	// Path names the file when the displayed diff has no file header
	Path string
	// Renamed makes both sides of the header use the new path
	Renamed bool
}

// EncodingName returns the WHATWG name of enc, "utf-8" for nil
func EncodingName(enc encoding.Encoding) string {
	if enc == nil {
		return "utf-8"
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return fmt.Sprintf("%v", enc)
	}
	return name
}

// writer builds patch bytes. Headers are written as UTF-8, line content in
// the file's encoding.
type writer struct {
	buf bytes.Buffer
	enc encoding.Encoding
}

func newWriter(enc encoding.Encoding) *writer {
	return &writer{enc: enc}
}

func (w *writer) header(line string) {
	w.buf.WriteString(line)
	w.buf.WriteByte('\n')
}

func (w *writer) headerf(format string, args ...interface{}) {
	w.header(fmt.Sprintf(format, args...))
}

// line writes a hunk line. prefix holds raw bytes, such as a byte-order mark,
// placed between the kind character and the content.
func (w *writer) line(kind diffmodel.Kind, prefix []byte, content string, noNewline bool) error {
	w.buf.WriteByte(kind.Prefix())
	w.buf.Write(prefix)
	if w.enc == nil {
		w.buf.WriteString(content)
	} else {
		encoded, err := w.enc.NewEncoder().String(content)
		if err != nil {
			return patcherr.NewEncodingError(EncodingName(w.enc), err)
		}
		w.buf.WriteString(encoded)
	}
	w.buf.WriteByte('\n')
	if noNewline {
		w.header(diffmodel.NoNewlineMarker)
	}
	return nil
}

func (w *writer) hunk(h *diffmodel.Hunk) error {
	w.header(h.Header())
	for _, l := range h.Lines {
		if err := w.line(l.Kind, nil, l.Content, l.NoNewline); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}
