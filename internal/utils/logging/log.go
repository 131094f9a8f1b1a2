// Package logging provides the leveled program logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"mediadl/internal/domain/consts"

	"github.com/rs/zerolog"
)

var (
	// level is the debug verbosity; D messages above it are dropped.
	level atomic.Int32

	mu      sync.RWMutex
	logger  = newLogger(os.Stdout, nil)
	logFile *os.File
)

func newLogger(console io.Writer, file io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}
	var w io.Writer = cw
	if file != nil {
		w = zerolog.MultiLevelWriter(cw, file)
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetupLogging opens the log file and routes output to both the console and the file.
//
// Passing an empty path logs to the console only.
func SetupLogging(logFilePath string, debugLevel int, console io.Writer) error {
	mu.Lock()
	defer mu.Unlock()

	if console == nil {
		console = os.Stdout
	}
	level.Store(int32(debugLevel))
	if debugLevel > 0 {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if logFilePath == "" {
		logger = newLogger(console, nil)
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, consts.PermsLogFile)
	if err != nil {
		logger = newLogger(console, nil)
		return fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger = newLogger(console, f)
	logger.Info().Msgf("=========== %v ===========", time.Now().Format(time.RFC1123Z))
	return nil
}

// Level returns the configured debug verbosity.
func Level() int {
	return int(level.Load())
}

// Close closes the log file, if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// E logs an error with the caller's location.
func E(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Error().Caller(1).Msgf(format, args...)
}

// W logs a warning.
func W(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Warn().Msgf(format, args...)
}

// I logs an informational message.
func I(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Info().Msgf(format, args...)
}

// S logs a success message.
func S(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Info().Bool("success", true).Msgf(format, args...)
}

// D logs a debug message if l is within the configured debug level.
func D(l int, format string, args ...any) {
	if l > Level() {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	logger.Debug().Int("lvl", l).Caller(1).Msgf(format, args...)
}

// P prints a plain message to the log without a level.
func P(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Log().Msgf(format, args...)
}
