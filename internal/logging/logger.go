package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logs go to <dir>/logs/<session-id>-bugshot.log. The TUI owns the terminal, so nothing
// is written to stdout/stderr unless the log file cannot be opened.

var (
	sessionID     string
	sessionIDOnce sync.Once

	mu   sync.Mutex
	root *zerolog.Logger
	file *os.File
	path string
)

// SessionID is stable for the lifetime of the process.
func SessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// Init opens the session log file under dir. Calling it again replaces the previous sink.
//
// On failure it falls back to stderr and returns the error so callers can surface it.
func Init(dir string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	closeLocked()

	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		l := fallback(level)
		root = &l
		return fmt.Errorf("create log directory: %w", err)
	}
	p := filepath.Join(logDir, SessionID()+"-bugshot.log")
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		l := fallback(level)
		root = &l
		return fmt.Errorf("open log file: %w", err)
	}
	file = f
	path = p
	l := newLogger(f, level)
	root = &l
	return nil
}

// InitWriter routes logs to w (tests, --log-stderr).
func InitWriter(w io.Writer, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	l := newLogger(w, level)
	root = &l
}

// Path returns the current log file path ("" when not logging to a file).
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return path
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if file != nil {
		_ = file.Close()
		file = nil
	}
	path = ""
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("session", SessionID()).
		Logger()
}

func fallback(level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return newLogger(cw, level)
}

// For returns a component logger. Before Init it discards everything.
func For(component string) zerolog.Logger {
	mu.Lock()
	r := root
	mu.Unlock()
	if r == nil {
		return zerolog.Nop()
	}
	return r.With().Str("component", strings.TrimSpace(component)).Logger()
}
