package otel

// The drain goroutine is the sole reader of l.ch and the sole writer to l.w.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// writerChanSize is the capacity of the async write channel.
const writerChanSize = 4096

// EnvTrace names a trace file when no --trace flag is given.
const EnvTrace = "PRISM_TRACE"

// Logger serializes events as JSONL via an async background writer.
// Goroutine-safe. A nil *Logger discards everything, so callers need no
// enabled check.
type Logger struct {
	runID     string
	ch        chan []byte
	w         io.Writer
	closer    io.Closer     // owned file, nil for caller-provided writers
	dropped   atomic.Uint64 // events dropped due to full channel, encode failure, or write error
	closed    atomic.Bool   // true after Close(); prevents send-on-closed-channel panic
	done      chan struct{} // closed when drain goroutine exits
	closeOnce sync.Once
	tap       func(Event)
}

// NewLogger creates a Logger writing JSONL to w asynchronously.
// Starts a background drain goroutine. Call Close() to flush and stop.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		runID: uuid.NewString(),
		ch:    make(chan []byte, writerChanSize),
		w:     w,
		done:  make(chan struct{}),
	}
	go l.drain()
	return l
}

// OpenFile creates (or appends to) the trace file at path.
func OpenFile(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create trace dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	l := NewLogger(f)
	l.closer = f
	return l, nil
}

// NewNullLogger creates a Logger that discards output.
// Callers should still call Close() to stop the drain goroutine.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) drain() {
	defer close(l.done)
	for data := range l.ch {
		if _, err := l.w.Write(data); err != nil {
			l.dropped.Add(1)
		}
	}
}

// RunID identifies this logger's run. Empty for a nil Logger.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Emit writes an event to the JSONL log. Sets Time (if zero) and RunID.
// Non-blocking: if the channel is full or the logger is closed, the event
// is dropped and the drop counter is incremented.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.RunID = l.runID
	if l.tap != nil {
		l.tap(e)
	}

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- data:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. Nil err is safe (logged as empty string).
func (l *Logger) Error(kind EventKind, comp string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errStr})
}

// Stage emits the outcome of a timed step begun at start: info with the
// item count, or error when err is set.
func (l *Logger) Stage(kind EventKind, comp string, start time.Time, count int, err error) {
	e := Event{Level: LevelInfo, Kind: kind, Comp: comp, Dur: time.Since(start), Count: count}
	if err != nil {
		e.Level = LevelError
		e.Err = err.Error()
	}
	l.Emit(e)
}

// Tap registers fn to receive every event synchronously, after Time and
// RunID are set. Call before the first Emit.
func (l *Logger) Tap(fn func(Event)) {
	if l != nil {
		l.tap = fn
	}
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending events, stops the drain goroutine, closes an
// owned file and reports dropped events to stderr. Idempotent.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if l.closer != nil {
			_ = l.closer.Close()
		}
		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "prism: %d trace events dropped during run %s\n", d, l.runID)
		}
	})
}
