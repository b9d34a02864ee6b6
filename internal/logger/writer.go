package logger

import (
	"bytes"
	"sync"
)

// LineWriter is an io.Writer that logs each complete line it receives at
// debug level. It is used to surface the output of external tools.
type LineWriter struct {
	log    Logger
	stream string

	mu  sync.Mutex
	buf []byte
}

func NewLineWriter(log Logger, stream string) *LineWriter {
	return &LineWriter{log: log, stream: stream}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *LineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	w.log.Debug(string(line), "stream", w.stream)
}
