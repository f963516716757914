package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Logger struct {
	mu            sync.Mutex
	fileLogger    *log.Logger
	closer        io.Closer
	console       io.Writer
	level         Level
	includeStdout bool
}

// New opens (or creates) the log file at filePath. An empty path logs to the
// console only.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	l := &Logger{
		level:         level,
		includeStdout: includeStdout,
		console:       os.Stderr,
	}

	if filePath == "" {
		l.fileLogger = log.New(io.Discard, "", 0)
		l.includeStdout = true
		return l, nil
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l.fileLogger = log.New(f, "", 0)
	l.closer = f
	return l, nil
}

// NewWriter logs every level to w. Used by tests and short-lived commands.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{
		fileLogger: log.New(w, "", 0),
		level:      level,
		console:    io.Discard,
	}
}

// Discard drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, LevelError+1)
}

func (l *Logger) log(lvl Level, prefix string, format string, v ...any) {
	if lvl < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	fullMsg := fmt.Sprintf("%s [%s] %s", timestamp, prefix, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.fileLogger.Println(fullMsg)

	// Debug stays in the file so it doesn't break the progress line
	if l.includeStdout && lvl >= LevelInfo {
		fmt.Fprintf(l.console, "\n%s", fullMsg)
	}
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, "DEBUG", f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, "INFO", f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, "WARN", f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, "ERROR", f, v...) }

func (l *Logger) Write(p []byte) (n int, err error) {
	// Echo and other libraries often include a newline at the end
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
