// Package log is a small leveled logger matching the shape used
// throughout this module's call sites: a pluggable Logger sink, a Helper
// wrapper offering per-level Printf/Print-style methods, and a Filter
// that drops records below a configured level.
package log

import (
	"fmt"
	"io"
	"sync"
)

// Level is a logging severity, ordered least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every record passes through.
type Logger interface {
	Log(level Level, msg string) error
}

// stdLogger writes "LEVEL msg\n" lines to an io.Writer.
type stdLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdLogger returns a Logger that writes plain lines to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{w: w}
}

func (l *stdLogger) Log(level Level, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "%s %s\n", level, msg)
	return err
}

// filter wraps a Logger, dropping records below minLevel.
type filter struct {
	next     Logger
	minLevel Level
}

// FilterOption configures a filter built by NewFilter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level a filtered Logger passes through.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.minLevel = level }
}

// NewFilter wraps next, applying every opt.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, msg string) error {
	if level < f.minLevel {
		return nil
	}
	return f.next.Log(level, msg)
}

// Helper offers the Debug/Info/Warn/Error(f) call sites this module uses
// against an underlying Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in a Helper.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	_ = h.logger.Log(level, fmt.Sprint(args...))
}

func (h *Helper) logf(level Level, format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	_ = h.logger.Log(level, fmt.Sprintf(format, args...))
}

func (h *Helper) Debug(args ...interface{})                 { h.log(LevelDebug, args...) }
func (h *Helper) Debugf(format string, args ...interface{}) { h.logf(LevelDebug, format, args...) }
func (h *Helper) Info(args ...interface{})                  { h.log(LevelInfo, args...) }
func (h *Helper) Infof(format string, args ...interface{})  { h.logf(LevelInfo, format, args...) }
func (h *Helper) Warn(args ...interface{})                  { h.log(LevelWarn, args...) }
func (h *Helper) Warnf(format string, args ...interface{})  { h.logf(LevelWarn, format, args...) }
func (h *Helper) Error(args ...interface{})                 { h.log(LevelError, args...) }
func (h *Helper) Errorf(format string, args ...interface{}) { h.logf(LevelError, format, args...) }
