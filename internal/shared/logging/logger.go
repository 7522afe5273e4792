package logging

import (
	"log/slog"
	"os"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
}

type SlogLogger struct {
	log *slog.Logger
}

func NewSlogLogger(level slog.Level) Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.TimeValue(a.Value.Time().UTC())
			}
			return a
		},
	}
	sl := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	return &SlogLogger{log: sl}
}

// FromSlog wraps an existing slog.Logger so callers can plug their own
// handler into the client. A nil logger yields the no-op logger.
func FromSlog(sl *slog.Logger) Logger {
	if sl == nil {
		return NewNopLogger()
	}
	return &SlogLogger{log: sl}
}

func (sl *SlogLogger) Debug(msg string, args ...any) {
	sl.log.Debug(msg, args...)
}

func (sl *SlogLogger) Info(msg string, args ...any) {
	sl.log.Info(msg, args...)
}

func (sl *SlogLogger) Warn(msg string, args ...any) {
	sl.log.Warn(msg, args...)
}

func (sl *SlogLogger) Error(msg string, args ...any) {
	sl.log.Error(msg, args...)
}

func (sl *SlogLogger) Fatal(msg string, args ...any) {
	sl.log.Error(msg, args...)
	os.Exit(1)
}

// NopLogger discards all log output. It is the default for clients that
// do not configure logging.
type NopLogger struct{}

func NewNopLogger() Logger { return &NopLogger{} }

func (*NopLogger) Debug(msg string, args ...any) {}
func (*NopLogger) Info(msg string, args ...any)  {}
func (*NopLogger) Warn(msg string, args ...any)  {}
func (*NopLogger) Error(msg string, args ...any) {}
func (*NopLogger) Fatal(msg string, args ...any) {}
