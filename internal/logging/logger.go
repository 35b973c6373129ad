// Package logging wraps zerolog with a rotating file sink and key/value helpers.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide logger.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Level      string
	Verbose    bool
	Console    bool // also write human-readable output to stderr
}

var (
	logger   = zerolog.New(os.Stderr).With().Timestamp().Logger()
	loggerMu sync.RWMutex
	verbose  bool
	baseLvl  = zerolog.InfoLevel
	rotator  *lumberjack.Logger
)

// InitLogger initializes the file logger with rotation.
func InitLogger(opts Options) error {
	if opts.File == "" {
		return fmt.Errorf("log file path is empty")
	}

	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	var w io.Writer = lj
	if opts.Console {
		w = zerolog.MultiLevelWriter(lj, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	loggerMu.Lock()
	if rotator != nil {
		_ = rotator.Close()
	}
	rotator = lj
	baseLvl = lvl
	verbose = opts.Verbose
	logger = zerolog.New(w).With().Timestamp().Logger().Level(effectiveLevel())
	loggerMu.Unlock()

	return nil
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

// ParseLevel accepts zerolog level names. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// SetLogLevel changes the base level at runtime. Unknown levels fall back to info.
func SetLogLevel(level string) {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	loggerMu.Lock()
	baseLvl = lvl
	logger = logger.Level(effectiveLevel())
	loggerMu.Unlock()
}

// SetVerbose changes the verbosity at runtime. Verbose lowers the level to debug.
func SetVerbose(v bool) {
	loggerMu.Lock()
	verbose = v
	logger = logger.Level(effectiveLevel())
	loggerMu.Unlock()
	Info("Log verbosity changed", "verbose", v)
}

// GetVerbose returns current verbosity
func GetVerbose() bool {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return verbose
}

// SetLoggerForTest replaces the logger; tests use it to capture output.
func SetLoggerForTest(l zerolog.Logger) {
	loggerMu.Lock()
	logger = l
	baseLvl = l.GetLevel()
	verbose = false
	loggerMu.Unlock()
}

// effectiveLevel must be called with loggerMu held.
func effectiveLevel() zerolog.Level {
	if verbose && baseLvl > zerolog.DebugLevel {
		return zerolog.DebugLevel
	}
	return baseLvl
}

func Debug(msg string, kv ...interface{}) { emit(zerolog.DebugLevel, msg, kv) }
func Info(msg string, kv ...interface{})  { emit(zerolog.InfoLevel, msg, kv) }
func Warn(msg string, kv ...interface{})  { emit(zerolog.WarnLevel, msg, kv) }
func Error(msg string, kv ...interface{}) { emit(zerolog.ErrorLevel, msg, kv) }

func emit(level zerolog.Level, msg string, kv []interface{}) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()

	e := l.WithLevel(level)
	if e == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 >= len(kv) {
			e = e.Interface("extra", key)
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case time.Duration:
			e = e.Str(key, v.String())
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
