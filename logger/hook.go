package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/volcengine/apminsight-profiler-go/profiler"
)

const (
	FieldSessionID = "profile_session_id"
	FieldEnv       = "profile_env"
)

// NewHook returns a logrus hook stamping entries logged with a profiled
// context (logrus.WithContext) with the session id and env.
func NewHook(levels []logrus.Level) logrus.Hook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &Hook{levels: levels}
}

type Hook struct {
	levels []logrus.Level
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	if e == nil || e.Context == nil {
		return nil
	}
	prof := profiler.FromContext(e.Context)
	if prof == nil {
		return nil
	}
	e.Data[FieldSessionID] = prof.Session().ID()
	e.Data[FieldEnv] = prof.Env()
	return nil
}
