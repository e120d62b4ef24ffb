// Package logging implements the tracker's leveled logger. Accepted
// messages are written to a single destination as timestamped lines:
//
//	<unix-seconds>: (<LETTER>): <message>
//
// The line format is a compatibility contract with downstream log
// consumers and must not change.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Severity is the ordered category of a log message. Lower values are
// more severe: a message is emitted when its severity is numerically
// less than or equal to the configured threshold.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityDebug
)

// String returns the full severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	case SeverityDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Letter returns the single-letter code used in emitted lines.
func (s Severity) Letter() byte {
	switch s {
	case SeverityError:
		return 'E'
	case SeverityWarning:
		return 'W'
	case SeverityInfo:
		return 'I'
	case SeverityDebug:
		return 'D'
	default:
		return '?'
	}
}

// ParseSeverity resolves a configured level name. The match is a
// case-sensitive literal on the full word or its single-letter
// abbreviation. Unrecognized input resolves to SeverityError, the most
// restrictive threshold, so a bad configuration value can only make the
// tracker quieter, never noisier.
func ParseSeverity(name string) Severity {
	switch name {
	case "debug", "d":
		return SeverityDebug
	case "warning", "w":
		return SeverityWarning
	case "info", "i":
		return SeverityInfo
	default:
		return SeverityError
	}
}

// Logger filters messages against a fixed threshold and writes accepted
// ones to its destination. The threshold is immutable after
// construction.
type Logger struct {
	threshold Severity
	now       func() time.Time

	mu   sync.Mutex
	dst  io.Writer
	owns bool
}

// New builds a Logger writing to dst. The destination's lifetime
// belongs to the caller; Close never releases it. A nil dst falls back
// to standard output.
func New(levelName string, dst io.Writer) *Logger {
	if dst == nil {
		dst = os.Stdout
	}
	return &Logger{
		threshold: ParseSeverity(levelName),
		now:       time.Now,
		dst:       dst,
	}
}

// Open builds a Logger that opens path for appending, creating it if
// needed. The Logger owns the file and releases it on Close. An empty
// path falls back to standard output, not owned.
func Open(levelName, path string) (*Logger, error) {
	if path == "" {
		return New(levelName, nil), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log destination %q: %w", path, err)
	}

	return &Logger{
		threshold: ParseSeverity(levelName),
		now:       time.Now,
		dst:       f,
		owns:      true,
	}, nil
}

// Threshold reports the configured minimum severity.
func (l *Logger) Threshold() Severity {
	return l.threshold
}

// Log writes one line for msg when level passes the threshold and does
// nothing at all otherwise. Concurrent callers are serialized so each
// line reaches the destination as a single write.
func (l *Logger) Log(level Severity, msg string) {
	if level > l.threshold {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.dst, "%d: (%c): %s\n", l.now().Unix(), level.Letter(), msg)
}

// Errorf logs a formatted message at ERROR.
func (l *Logger) Errorf(format string, args ...any) {
	l.Log(SeverityError, fmt.Sprintf(format, args...))
}

// Warningf logs a formatted message at WARNING.
func (l *Logger) Warningf(format string, args ...any) {
	l.Log(SeverityWarning, fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at INFO.
func (l *Logger) Infof(format string, args ...any) {
	l.Log(SeverityInfo, fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at DEBUG.
func (l *Logger) Debugf(format string, args ...any) {
	l.Log(SeverityDebug, fmt.Sprintf(format, args...))
}

// Close releases the destination when the Logger owns it. A Logger
// writing to a caller-supplied destination leaves it untouched.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.owns {
		return nil
	}
	l.owns = false

	if c, ok := l.dst.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close log destination: %w", err)
		}
	}
	return nil
}

// Discard returns a Logger that accepts nothing, for use as a safe
// default in constructors.
func Discard() *Logger {
	return &Logger{
		threshold: SeverityError - 1,
		now:       time.Now,
		dst:       io.Discard,
	}
}
