package xlog

import (
	"bytes"
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
)

////////////////////////////////////////////////////////////////////////////////

// DiagWriter turns a stream of newline terminated diagnostics into log records.
// Each complete line is logged at error level, an unterminated tail is kept until
// the next write or Close.
type DiagWriter struct {
	ctx    context.Context
	l      Logger
	fields []zap.Field

	mu    sync.Mutex
	buf   bytes.Buffer
	lines int
}

var _ io.WriteCloser = (*DiagWriter)(nil)

func NewDiagWriter(ctx context.Context, l Logger, fields ...zap.Field) *DiagWriter {
	return &DiagWriter{ctx: ctx, l: l.WithCallerSkip(1), fields: fields}
}

// Write implements io.Writer.
func (w *DiagWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx == -1 {
			break
		}
		line := string(w.buf.Next(idx + 1)[:idx])
		w.emit(line)
	}
	return len(p), nil
}

// Close implements io.Closer.
func (w *DiagWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
	return nil
}

// Lines returns the number of diagnostics logged so far.
func (w *DiagWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func (w *DiagWriter) emit(line string) {
	if line == "" {
		return
	}
	w.lines++
	w.l.Error(w.ctx, line, w.fields...)
}

////////////////////////////////////////////////////////////////////////////////
