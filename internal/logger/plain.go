package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PlainLogger writes one "time [LEVEL] msg k=v" line per record. It is the
// fallback selected by STOWAGE_LOG_PLAIN for terminals that do not want
// slog's key quoting.
type PlainLogger struct {
	out   *plainOutput
	level Level
	attrs []any
}

// plainOutput serializes writes shared by a logger and its children
type plainOutput struct {
	mu        sync.Mutex
	w         io.Writer
	sanitizer *Sanitizer
	now       func() time.Time
	closers   []io.WriteCloser
}

// NewPlainLogger creates a plain logger writing to w
func NewPlainLogger(level Level, w io.Writer) *PlainLogger {
	return &PlainLogger{
		out: &plainOutput{
			w:         w,
			sanitizer: NewSanitizer(),
			now:       time.Now,
		},
		level: level,
	}
}

func (l *PlainLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *PlainLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *PlainLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *PlainLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }

// With returns a child that prefixes args to every record
func (l *PlainLogger) With(args ...any) Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return &PlainLogger{out: l.out, level: l.level, attrs: attrs}
}

func (l *PlainLogger) Sync() error { return nil }

// Shutdown closes writers handed over by Init. Children share them, so
// only the root logger should be shut down.
func (l *PlainLogger) Shutdown() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	var lastErr error
	for _, c := range l.out.closers {
		if err := c.Close(); err != nil {
			lastErr = err
		}
	}
	l.out.closers = nil
	return lastErr
}

func (l *PlainLogger) log(level Level, msg string, args []any) {
	if level < l.level {
		return
	}

	all := make([]any, 0, len(l.attrs)+len(args))
	all = append(all, l.attrs...)
	all = append(all, args...)
	all = l.out.sanitizer.SanitizeArgs(all)

	var b strings.Builder
	b.WriteString(l.out.now().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString("] ")
	b.WriteString(l.out.sanitizer.Sanitize(msg))
	for i := 0; i < len(all); i += 2 {
		if i+1 >= len(all) {
			fmt.Fprintf(&b, " !BADKEY=%v", all[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	io.WriteString(l.out.w, b.String())
}
