package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Environment variable to configure log file path.
const envLogPath = "QUERYCACHE_LOG"

var (
	mu      sync.Mutex
	std     *log.Logger
	logFile *os.File
)

// InitFromEnv initializes the logger using QUERYCACHE_LOG or a default path.
// Output goes to a file because stdout carries the MCP stdio transport.
func InitFromEnv() error {
	return Init(pathFromEnv())
}

// Init initializes the logger to write to the provided file path.
// It creates parent directories if needed and opens the file in append mode.
// Calls after the first are no-ops.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	return initLocked(path)
}

// Close closes the underlying log file, if open. The next log call
// re-initializes from the environment.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	std = nil
	return err
}

// Printf logs a formatted message at info level.
func Printf(format string, args ...any) { write("INFO", format, args...) }

// Debugf logs debugging detail.
func Debugf(format string, args ...any) { write("DEBUG", format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { write("INFO", format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write("WARN", format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write("ERROR", format, args...) }

func write(level string, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if std == nil {
		// Lazy fallback for code paths that log before main initializes.
		if err := initLocked(pathFromEnv()); err != nil {
			return
		}
	}
	std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func initLocked(path string) error {
	if std != nil {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return nil
}

func pathFromEnv() string {
	if path := os.Getenv(envLogPath); path != "" {
		return path
	}
	// Default to the directory where the executable is located.
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "querycache.log")
	}
	return "./querycache.log"
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
