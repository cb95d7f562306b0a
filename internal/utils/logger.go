package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// InitLogger configures the global logger. When file is non-empty, log output
// is duplicated to a size-rotated file.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	writers := []io.Writer{os.Stderr}
	if file != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Logger().Level(lvl)
}

// SetLogLevel changes the level of the already-configured logger.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	logger = logger.Level(lvl)
}

// SetLoggerForTest replaces the global logger so tests can capture output.
func SetLoggerForTest(l zerolog.Logger) {
	logger = l
}

// withFields attaches alternating key/value pairs to a log event.
func withFields(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}

// Debug logs a debug-level message with alternating key/value pairs.
func Debug(msg string, kv ...interface{}) {
	withFields(logger.Debug(), kv).Msg(msg)
}

// Info logs an info-level message with alternating key/value pairs.
func Info(msg string, kv ...interface{}) {
	withFields(logger.Info(), kv).Msg(msg)
}

// Warn logs a warn-level message with alternating key/value pairs.
func Warn(msg string, kv ...interface{}) {
	withFields(logger.Warn(), kv).Msg(msg)
}

// Error logs an error-level message with alternating key/value pairs.
func Error(msg string, kv ...interface{}) {
	withFields(logger.Error(), kv).Msg(msg)
}
