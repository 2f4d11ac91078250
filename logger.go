package imagefs

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with imagefs-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithInode adds an inode field to the logger (useful for tagging operations).
func (l *Logger) WithInode(ino int32) *Logger {
	return &Logger{
		Logger: l.Logger.With("inode", ino),
	}
}

// WithName adds a directory entry name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// LogCreate logs a file or directory creation.
func (l *Logger) LogCreate(kind, name string, ino int32, err error) {
	if err != nil {
		l.Error("create failed",
			"kind", kind,
			"name", name,
			"error", err,
		)
	} else {
		l.Debug("create completed",
			"kind", kind,
			"name", name,
			"inode", ino,
		)
	}
}

// LogDelete logs a file or directory deletion.
func (l *Logger) LogDelete(kind, name string, err error) {
	if err != nil {
		l.Error("delete failed",
			"kind", kind,
			"name", name,
			"error", err,
		)
	} else {
		l.Debug("delete completed",
			"kind", kind,
			"name", name,
		)
	}
}

// LogIO logs a read or write through a descriptor.
func (l *Logger) LogIO(op string, fd, n int, err error) {
	if err != nil {
		l.Error("io failed",
			"op", op,
			"fd", fd,
			"bytes", n,
			"error", err,
		)
	} else {
		l.Debug("io completed",
			"op", op,
			"fd", fd,
			"bytes", n,
		)
	}
}

// LogSave logs an image save.
func (l *Logger) LogSave(path string, err error) {
	if err != nil {
		l.Error("image save failed",
			"path", path,
			"error", err,
		)
	} else {
		l.Debug("image saved",
			"path", path,
		)
	}
}

// LogSnapshot logs a snapshot export.
func (l *Logger) LogSnapshot(path string, err error) {
	if err != nil {
		l.Error("snapshot failed",
			"path", path,
			"error", err,
		)
	} else {
		l.Info("snapshot saved",
			"path", path,
		)
	}
}
