// Package logging provides the kernel's log sink: a small leveled logger
// plus an allocation-free path for contexts where the allocator cannot be
// trusted (inside an interrupt handler, or after an OOM has already been
// detected).
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/danieldegrasse/bmos-go/drivers/swo"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) tag() string {
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

// Config configures a Logger.
type Config struct {
	Level  Level
	Output io.Writer
}

// DefaultConfig returns a sensible default: INFO and above, to an
// swo.Writer — the host stand-in for the SWO/semihost trace channel
// LOG_MIN writes to on the real target.
func DefaultConfig() *Config {
	return &Config{Level: LevelInfo, Output: swo.New(nil)}
}

// Logger wraps the stdlib logger with level filtering and a
// `TAG [LEVEL]: message` line format.
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
	level  Level
	output io.Writer
}

// NewLogger creates a Logger from cfg, or DefaultConfig if cfg is nil.
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = swo.New(nil)
	}
	return &Logger{
		logger: log.New(out, "", log.LstdFlags),
		level:  cfg.Level,
		output: out,
	}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Default returns the process-wide default logger, creating it lazily.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

func (l *Logger) log(level Level, tag, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("%s [%s]: %s", tag, level.tag(), fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(tag, format string, args ...any) { l.log(LevelDebug, tag, format, args...) }
func (l *Logger) Infof(tag, format string, args ...any)  { l.log(LevelInfo, tag, format, args...) }
func (l *Logger) Warnf(tag, format string, args ...any)  { l.log(LevelWarn, tag, format, args...) }
func (l *Logger) Errorf(tag, format string, args ...any) { l.log(LevelError, tag, format, args...) }

// LogMin writes a single preformatted line with no fmt allocation, for
// allocation-poor contexts such as a detected stack overflow or an
// in-progress OOM where calling into fmt.Sprintf is not safe to assume.
func (l *Logger) LogMin(level Level, tag, msg string) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.output, tag+" ["+level.tag()+"]: "+msg+"\n")
}

// Sync flushes buffered output, standing in for fsync(stdout). Only
// meaningful when Output is an *os.File; otherwise a no-op.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.output.(*os.File); ok {
		return f.Sync()
	}
	return nil
}

// Package-level convenience functions bound to the default logger,
// matching the source's LOG_D/I/W/E(tag, fmt, ...) macros.
func Debugf(tag, format string, args ...any) { Default().Debugf(tag, format, args...) }
func Infof(tag, format string, args ...any)  { Default().Infof(tag, format, args...) }
func Warnf(tag, format string, args ...any)  { Default().Warnf(tag, format, args...) }
func Errorf(tag, format string, args ...any) { Default().Errorf(tag, format, args...) }
