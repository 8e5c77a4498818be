// Package logging provides leveled structured logging on zerolog, with a
// console or JSON stdout writer and an optional append-only JSON log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/backmassage/dealsync/internal/config"
	"github.com/backmassage/dealsync/internal/term"
)

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates a Field for an error.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Logger is the logging interface passed to every component. Success is an
// info-level line flagged success=true, used for completed outcomes.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Success(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Close() error
}

type logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger builds a Logger from cfg.Log: level, console or JSON stdout
// encoding, color, and the optional log file. Call Close when done if a log
// file was set.
func NewLogger(cfg *config.Config) (Logger, error) {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var stdout io.Writer = os.Stdout
	if cfg.Log.Format != config.LogJSON {
		stdout = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    !term.ColorEnabled(cfg.Log.Color, os.Stdout),
		}
	}

	l := &logger{}
	w := stdout
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		w = zerolog.MultiLevelWriter(stdout, f)
	}

	l.zl = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// NewWriterLogger returns a JSON Logger writing to w at the given level.
// Tests use it to inspect emitted lines.
func NewWriterLogger(w io.Writer, level zerolog.Level) Logger {
	return &logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// Close closes the log file if one was opened.
func (l *logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func (l *logger) Success(msg string, fields ...Field) {
	emit(l.zl.Info().Bool("success", true), msg, fields)
}

// With returns a child logger with fields attached to every line. The child
// shares the parent's log file; closing it is a no-op.
func (l *logger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, fieldValue(f.Value))
	}
	return &logger{zl: ctx.Logger()}
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			event = event.Str(f.Key, v)
		case int:
			event = event.Int(f.Key, v)
		case int64:
			event = event.Int64(f.Key, v)
		case bool:
			event = event.Bool(f.Key, v)
		case error:
			event = event.AnErr(f.Key, v)
		case time.Duration:
			event = event.Dur(f.Key, v)
		case time.Time:
			event = event.Time(f.Key, v)
		case fmt.Stringer:
			event = event.Str(f.Key, v.String())
		default:
			event = event.Interface(f.Key, v)
		}
	}
	event.Msg(msg)
}

func fieldValue(v interface{}) interface{} {
	switch x := v.(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	return v
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field)   {}
func (nopLogger) Info(string, ...Field)    {}
func (nopLogger) Success(string, ...Field) {}
func (nopLogger) Warn(string, ...Field)    {}
func (nopLogger) Error(string, ...Field)   {}
func (n nopLogger) With(...Field) Logger   { return n }
func (nopLogger) Close() error             { return nil }

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return nopLogger{} }
