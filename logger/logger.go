package logger

// Record is one structured log entry.
type Record struct {
	Type   string
	Msg    string
	Err    error
	Detail interface{}
}

// Logger is the leveled sink used by the profiler components.
// Implementations must not panic.
type Logger interface {
	Info(r Record)
	Error(r Record)
	Critical(r Record)
}

type NoopLogger struct{}

func (l *NoopLogger) Info(r Record)     {}
func (l *NoopLogger) Error(r Record)    {}
func (l *NoopLogger) Critical(r Record) {}
