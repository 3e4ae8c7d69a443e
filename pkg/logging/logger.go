// Package logging writes per-session log files for the geodemo tools.
//
// Terminal UIs own stdout and stderr, so everything that would normally be
// printed goes to <dir>/<session-id>-geodemo.log instead. All loggers in a
// process share the session id and the file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes leveled, component-tagged lines to the session log.
type Logger struct {
	// Verbose enables Debugf output.
	Verbose bool

	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is where log files are created. Empty means ~/.geodemo/logs.
	logDir   string
	initOnce sync.Once
	initErr  error
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// SetDirectory overrides the log directory. It must be called before the
// first NewLogger.
func SetDirectory(dir string) {
	logDir = dir
}

func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".geodemo", "logs")
		}
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// NewLogger creates a logger for component writing to the session file.
//
// If the file cannot be opened it returns a logger that writes to stderr
// together with the error, so callers can warn about the fallback.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, sessID+"-geodemo.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, "", 0)
	l := &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    logger,
	}
	l.Warnf("file logging unavailable, using stderr: %v", err)
	return l
}

func (l *Logger) write(level, format string, v []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs when Verbose is set.
func (l *Logger) Debugf(format string, v ...any) {
	if !l.Verbose {
		return
	}
	l.write("DEBUG", format, v)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...any) { l.write("INFO", format, v) }

// Warnf logs a warning.
func (l *Logger) Warnf(format string, v ...any) { l.write("WARN", format, v) }

// Errorf logs an error.
func (l *Logger) Errorf(format string, v ...any) { l.write("ERROR", format, v) }

// Writer returns the underlying destination.
func (l *Logger) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// SessionID returns the session id shared by all loggers in the process.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the log file path, or "" for a stderr fallback logger.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
