package xio

import (
	"io"
)

// NewPrefixWriter prefixes every complete line with the given label,
// typically `job/instance | `. It composes with LineWriter so the prefix
// lands once per line, not once per Write call.
func NewPrefixWriter(w io.Writer, prefix []byte) *LineWriter {
	return NewLineWriter(&prefixWriter{
		w:      w,
		prefix: prefix,
	})
}

type prefixWriter struct {
	w      io.Writer
	prefix []byte
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	line := make([]byte, 0, len(w.prefix)+len(p))
	line = append(line, w.prefix...)
	line = append(line, p...)

	if _, err := w.w.Write(line); err != nil {
		return 0, err
	}

	return len(p), nil
}
