// Package logging provides structured, level-gated logging that is safe to
// use under the stdio transport: when StdioMode is set, nothing is ever
// written to stdout, since a single stray byte there would corrupt the
// Content-Length-framed JSON-RPC stream the client is reading.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StdioMode mirrors the teacher's MCPMode flag: when true, stdout is never
// written to, regardless of level or explicit output configuration. It is
// false unless a caller sets it with SetStdioMode; nothing in this module
// does.
var StdioMode = false

func SetStdioMode(enabled bool) {
	StdioMode = enabled
}

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

var (
	mu       sync.Mutex
	out      io.Writer
	minLevel = LevelInfo
	logFile  *os.File
)

// SetLevel adjusts the minimum level written. The default is LevelInfo.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput sets the writer logs are written to. A nil writer disables
// logging. Never pass os.Stdout here when the stdio transport is active.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// InitLogFile opens a timestamped log file under os.TempDir()/groovy-lsp-logs
// and routes output there, the way a long-lived background process should:
// never to stdout, and to a location the editor extension can tail.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "groovy-lsp-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("groovy-lsp-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}

	logFile = f
	out = f
	return path, nil
}

// Close closes the log file opened by InitLogFile, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		out = nil
		return err
	}
	return nil
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func emit(level Level, component, format string, args ...interface{}) {
	if level < minLevel {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	if StdioMode && w == os.Stdout {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "%s [%s] [%s] %s\n", time.Now().Format(time.RFC3339), level, component, msg)
}

func Debugf(component, format string, args ...interface{}) { emit(LevelDebug, component, format, args...) }
func Infof(component, format string, args ...interface{})  { emit(LevelInfo, component, format, args...) }
func Warnf(component, format string, args ...interface{})  { emit(LevelWarn, component, format, args...) }
func Errorf(component, format string, args ...interface{}) { emit(LevelError, component, format, args...) }
