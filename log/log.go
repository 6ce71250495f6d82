// Package log provides a thin wrapper around zerolog with the leveled and
// structured helpers used across the repository. It must be initialized once
// with Init before any service starts logging.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	logTestWriterName = "__test__"
)

var (
	log zerolog.Logger

	// logTestWriter can be set before calling Init with output
	// logTestWriterName, so tests and benchmarks can capture the output.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars is set from the LOG_PANIC_ON_INVALIDCHARS env var.
	// When enabled, logging a message containing invalid UTF-8 panics; it is
	// only meant to be used by tests.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

// Logger returns the initialized zerolog.Logger.
func Logger() *zerolog.Logger { return &log }

// Level returns the current log level string.
func Level() string {
	switch log.GetLevel() {
	case zerolog.DebugLevel:
		return LogLevelDebug
	case zerolog.InfoLevel:
		return LogLevelInfo
	case zerolog.WarnLevel:
		return LogLevelWarn
	case zerolog.ErrorLevel:
		return LogLevelError
	default:
		return log.GetLevel().String()
	}
}

// Init initializes the logger with the given level and output. Output can be
// "stdout", "stderr" or a file path. The optional errorOutput is a file path
// where messages of level error or above are duplicated.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339Nano}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, errorLevelWriter{errorOutput})
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log = zerolog.New(out).With().Timestamp().Caller().Logger()
	switch strings.ToLower(level) {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	log.Debug().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// errorLevelWriter forwards only error-or-above events to the wrapped writer.
type errorLevelWriter struct{ w io.Writer }

func (lw errorLevelWriter) Write(p []byte) (int, error) { return lw.w.Write(p) }

func (lw errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return lw.w.Write(p)
}

func checkInvalidChars(s string) {
	if panicOnInvalidChars && !utf8.ValidString(s) {
		panic(fmt.Sprintf("log message with invalid chars: %q", s))
	}
}

func msg(ev *zerolog.Event, s string) {
	checkInvalidChars(s)
	ev.CallerSkipFrame(2).Msg(s)
}

// withFields appends alternating key/value pairs to the event.
func withFields(ev *zerolog.Event, keyvals ...any) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	return ev
}

// Debug logs at debug level.
func Debug(args ...any) { msg(log.Debug(), fmt.Sprint(args...)) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { msg(log.Debug(), fmt.Sprintf(format, args...)) }

// Debugw logs a message with alternating key/value fields at debug level.
func Debugw(message string, keyvals ...any) { msg(withFields(log.Debug(), keyvals...), message) }

// Info logs at info level.
func Info(args ...any) { msg(log.Info(), fmt.Sprint(args...)) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { msg(log.Info(), fmt.Sprintf(format, args...)) }

// Infow logs a message with alternating key/value fields at info level.
func Infow(message string, keyvals ...any) { msg(withFields(log.Info(), keyvals...), message) }

// Warn logs at warn level.
func Warn(args ...any) { msg(log.Warn(), fmt.Sprint(args...)) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { msg(log.Warn(), fmt.Sprintf(format, args...)) }

// Warnw logs a message with alternating key/value fields at warn level.
func Warnw(message string, keyvals ...any) { msg(withFields(log.Warn(), keyvals...), message) }

// Error logs at error level.
func Error(args ...any) { msg(log.Error(), fmt.Sprint(args...)) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { msg(log.Error(), fmt.Sprintf(format, args...)) }

// Errorw logs an error with a message at error level.
func Errorw(err error, message string) { msg(log.Error().Err(err), message) }

// Fatalf logs a formatted message and exits.
func Fatalf(format string, args ...any) {
	msg(log.Fatal(), fmt.Sprintf(format, args...))
}
