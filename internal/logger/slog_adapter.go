package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger writes sanitized records through log/slog
type SlogLogger struct {
	sanitizedLogger
	writers []io.WriteCloser // owned writers, closed on Shutdown
}

// sanitizedLogger masks messages and args before handing them to slog.
// Children share the handler but own no writers.
type sanitizedLogger struct {
	logger    *slog.Logger
	sanitizer *Sanitizer
}

// NewSlogLogger creates a slog-backed logger for config
func NewSlogLogger(config Config) (*SlogLogger, error) {
	writers, closers, err := resolveWriters(config)
	if err != nil {
		return nil, err
	}

	out := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogLogger{
		sanitizedLogger: sanitizedLogger{
			logger:    slog.New(handler),
			sanitizer: NewSanitizer(),
		},
		writers: closers,
	}, nil
}

// resolveWriters turns the configured outputs into writers and
// collects the ones the logger must close.
func resolveWriters(config Config) ([]io.Writer, []io.WriteCloser, error) {
	var writers []io.Writer
	var closers []io.WriteCloser

	addCustom := func(w io.Writer) {
		writers = append(writers, w)
		// Standard streams are never closed
		if wc, ok := w.(io.WriteCloser); ok && wc != os.Stdout && wc != os.Stderr {
			closers = append(closers, wc)
		}
	}

	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStdout:
			if output.Writer != nil {
				addCustom(output.Writer)
			} else {
				writers = append(writers, os.Stdout)
			}
		case OutputStderr:
			if output.Writer != nil {
				addCustom(output.Writer)
			} else {
				writers = append(writers, os.Stderr)
			}
		case OutputFile:
			if !config.File.Enabled {
				continue
			}
			fileWriter, err := createFileWriter(config.File)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create file writer: %w", err)
			}
			writers = append(writers, fileWriter)
			closers = append(closers, fileWriter)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	return writers, closers, nil
}

// createFileWriter returns a lumberjack writer that rotates the log file
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

func (l *sanitizedLogger) Debug(msg string, args ...any) {
	l.logger.Debug(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

func (l *sanitizedLogger) Info(msg string, args ...any) {
	l.logger.Info(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

func (l *sanitizedLogger) Warn(msg string, args ...any) {
	l.logger.Warn(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

func (l *sanitizedLogger) Error(msg string, args ...any) {
	l.logger.Error(l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

// With returns a child logger that shares the handler but owns no writers
func (l *sanitizedLogger) With(args ...any) Logger {
	return &sanitizedLogger{
		logger:    l.logger.With(l.sanitizer.SanitizeArgs(args)...),
		sanitizer: l.sanitizer,
	}
}

// Sync is a no-op; lumberjack writes through on every record
func (l *sanitizedLogger) Sync() error {
	return nil
}

// Shutdown is a no-op for children
func (l *sanitizedLogger) Shutdown() error {
	return nil
}

// Shutdown closes every owned writer
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
