package client

import "fmt"

// Logger receives the HTTP layer's diagnostics. *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// restyLogger adapts Logger to resty's printf-style logger.
type restyLogger struct {
	l Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error("devicehub client request failed", "detail", fmt.Sprintf(format, v...))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn("devicehub client warning", "detail", fmt.Sprintf(format, v...))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug("devicehub client", "detail", fmt.Sprintf(format, v...))
}
