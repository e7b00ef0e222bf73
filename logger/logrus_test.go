package logger

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusLogger_Levels(t *testing.T) {
	l, hook := test.NewNullLogger()
	log := NewLogrus(l)

	log.Info(Record{Type: "kafka", Msg: "produced", Detail: map[string]interface{}{"topic": "a"}})
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "produced", entry.Message)
	assert.Equal(t, "kafka", entry.Data[FieldType])
	assert.Equal(t, map[string]interface{}{"topic": "a"}, entry.Data[FieldDetail])
	assert.NotContains(t, entry.Data, logrus.ErrorKey)

	log.Error(Record{Type: "kafka", Msg: "too large"})
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.NotContains(t, entry.Data, FieldSeverity)
	assert.NotContains(t, entry.Data, FieldDetail)

	err := errors.New("broker down")
	log.Critical(Record{Type: "kafka", Msg: "produce failed", Err: err})
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, SeverityCritical, entry.Data[FieldSeverity])
	assert.Equal(t, err, entry.Data[logrus.ErrorKey])
	assert.Len(t, hook.Entries, 3)
}

func TestLogrusLogger_WithField(t *testing.T) {
	l, hook := test.NewNullLogger()
	log := NewLogrus(l).WithField("session", "abc")
	log.Info(Record{Type: "dump", Msg: "request"})
	assert.Equal(t, "abc", hook.LastEntry().Data["session"])
}

func TestNewLogrus_NilUsesStandardLogger(t *testing.T) {
	log := NewLogrus(nil)
	assert.Same(t, logrus.StandardLogger(), log.entry.Logger)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("loud"))
}

func TestNoopLogger(t *testing.T) {
	var l Logger = &NoopLogger{}
	assert.NotPanics(t, func() {
		l.Info(Record{})
		l.Error(Record{})
		l.Critical(Record{Err: errors.New("x")})
	})
}
