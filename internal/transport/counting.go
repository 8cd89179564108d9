package transport

import (
	"io"
	"sync/atomic"
)

// CountingWriter wraps an io.Writer and tracks how many bytes pass
// through it. The publish path streams the compressed snapshot through
// one of these so the payload size can be reported without buffering
// the document in memory.
type CountingWriter struct {
	w io.Writer
	n atomic.Int64
}

// NewCountingWriter returns a CountingWriter wrapping w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}

// Write forwards p to the underlying writer and accumulates the number
// of bytes it accepted.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n.Add(int64(n))
	return n, err
}

// Count returns the bytes written so far. Safe to call while a write
// is in flight on another goroutine.
func (cw *CountingWriter) Count() int64 {
	return cw.n.Load()
}
