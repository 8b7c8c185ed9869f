package xio

import (
	"bytes"
	"io"
)

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{
		w: w,
	}
}

// LineWriter forwards only complete lines to the underlying writer,
// buffering any trailing partial line. Step output from concurrent
// matrix instances is funneled through one of these per instance so
// lines never interleave mid-line. A complete line arriving while
// nothing is buffered is forwarded as-is, without a copy.
//
// The owner must call Flush once the stream ends: a command whose last
// output carries no trailing newline would otherwise never surface it.
type LineWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

func (w *LineWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.buf.Write(p)
			total += len(p)
			break
		}

		line := p[:i+1]
		if w.buf.Len() > 0 {
			w.buf.Write(line)
			line = w.buf.Bytes()
		}

		if _, err := w.w.Write(line); err != nil {
			return total, err
		}

		w.buf.Reset()
		total += i + 1
		p = p[i+1:]
	}

	return total, nil
}

// Flush forwards the buffered partial line, if any, as a final short
// write.
func (w *LineWriter) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}

	_, err := w.w.Write(w.buf.Bytes())
	if err != nil {
		return err
	}

	w.buf.Reset()
	return nil
}
