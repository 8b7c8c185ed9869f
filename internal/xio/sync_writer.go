package xio

import (
	"io"
	"sync"
)

func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{
		w: w,
	}
}

// SyncWriter serializes writes from concurrent matrix instances onto a
// shared destination.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *SyncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.w.Write(p)
}
