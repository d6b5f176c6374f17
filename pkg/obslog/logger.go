// Package obslog provides the structured logger used across every
// component of the sync engine.
package obslog

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the minimal structured-logging surface every component depends
// on, so that tests can swap in a no-op or recording implementation.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ZeroLogger adapts zerolog to the Logger interface.
type ZeroLogger struct {
	logger zerolog.Logger
}

// New returns a ZeroLogger writing structured JSON to stderr with a
// timestamp on every record.
func New() *ZeroLogger {
	return &ZeroLogger{logger: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

func (l *ZeroLogger) write(event *zerolog.Event, msg string, kv ...any) {
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprintf("%v", kv[i])
		if i+1 < len(kv) {
			event.Interface(key, kv[i+1])
		} else {
			event.Interface(key, nil)
		}
	}
	event.Msg(msg)
}

func (l *ZeroLogger) Debug(msg string, kv ...any) { l.write(l.logger.Debug(), msg, kv...) }
func (l *ZeroLogger) Info(msg string, kv ...any)  { l.write(l.logger.Info(), msg, kv...) }
func (l *ZeroLogger) Warn(msg string, kv ...any)  { l.write(l.logger.Warn(), msg, kv...) }
func (l *ZeroLogger) Error(msg string, kv ...any) { l.write(l.logger.Error(), msg, kv...) }

// Nop is a Logger that discards everything; useful in tests.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
