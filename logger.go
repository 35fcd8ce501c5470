package pagou

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Logger receives the client's debug output. Keys and values alternate in
// keysAndValues, like most structured loggers.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig selects which stages of a call are logged.
type DebugConfig struct {
	Enabled     bool
	LogRequests bool
	LogRetries  bool
	LogCircuit  bool
}

// DefaultDebugConfig logs every stage once enabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		LogRequests: true,
		LogRetries:  true,
		LogCircuit:  true,
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger to the Logger interface.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

// NewConsoleLogger returns a Logger writing human-readable lines to stderr.
func NewConsoleLogger() Logger {
	return &zerologLogger{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

func (z *zerologLogger) Debug(msg string, keysAndValues ...any) {
	withFields(z.logger.Debug(), keysAndValues).Msg(msg)
}

func (z *zerologLogger) Info(msg string, keysAndValues ...any) {
	withFields(z.logger.Info(), keysAndValues).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, keysAndValues ...any) {
	withFields(z.logger.Warn(), keysAndValues).Msg(msg)
}

func (z *zerologLogger) Error(msg string, keysAndValues ...any) {
	withFields(z.logger.Error(), keysAndValues).Msg(msg)
}

func withFields(event *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	return event
}
