package logger

import (
	"github.com/sirupsen/logrus"
)

const (
	FieldType     = "type"
	FieldDetail   = "detail"
	FieldSeverity = "severity"

	SeverityCritical = "critical"
)

var _ Logger = &LogrusLogger{}

// LogrusLogger writes records as logrus entries. logrus has no level between
// error and fatal, so critical records are logged at error level and marked
// with severity=critical.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus wraps l. A nil l uses the logrus standard logger.
func NewLogrus(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// WithField returns a logger that adds key to every record.
func (l *LogrusLogger) WithField(key string, value interface{}) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *LogrusLogger) Info(r Record) {
	l.toEntry(r).Info(r.Msg)
}

func (l *LogrusLogger) Error(r Record) {
	l.toEntry(r).Error(r.Msg)
}

func (l *LogrusLogger) Critical(r Record) {
	l.toEntry(r).WithField(FieldSeverity, SeverityCritical).Error(r.Msg)
}

func (l *LogrusLogger) toEntry(r Record) *logrus.Entry {
	e := l.entry.WithField(FieldType, r.Type)
	if r.Detail != nil {
		e = e.WithField(FieldDetail, r.Detail)
	}
	if r.Err != nil {
		e = e.WithError(r.Err)
	}
	return e
}

// ParseLevel falls back to info for unknown level names.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
