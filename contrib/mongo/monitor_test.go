package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"

	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

func startedEvent(t *testing.T, requestID int64, command bson.D) *event.CommandStartedEvent {
	raw, err := bson.Marshal(command)
	require.NoError(t, err)
	return &event.CommandStartedEvent{
		Command:      raw,
		DatabaseName: "shop",
		CommandName:  command[0].Key,
		RequestID:    requestID,
		ConnectionID: "mongo-0:27018[-3]",
	}
}

func finishedEvent(started *event.CommandStartedEvent) event.CommandFinishedEvent {
	return event.CommandFinishedEvent{
		CommandName:  started.CommandName,
		RequestID:    started.RequestID,
		ConnectionID: started.ConnectionID,
	}
}

func TestMonitor(t *testing.T) {
	var exported []session.Record
	sess := session.New(session.ExporterFunc(func(records []session.Record) error {
		exported = append(exported, records...)
		return nil
	}))
	prof := profiler.New(sess, "test")
	ctx := profiler.ContextWithProfiler(context.Background(), prof)
	m := NewMonitor()

	find := startedEvent(t, 1, bson.D{{Key: "find", Value: "orders"}})
	insert := startedEvent(t, 2, bson.D{{Key: "insert", Value: "orders"}})
	m.Started(ctx, find)
	m.Started(ctx, insert)
	require.Len(t, prof.Inflight(), 2)

	m.Succeeded(ctx, &event.CommandSucceededEvent{CommandFinishedEvent: finishedEvent(find)})
	m.Failed(ctx, &event.CommandFailedEvent{CommandFinishedEvent: finishedEvent(insert), Failure: "duplicate key"})
	assert.Empty(t, prof.Inflight())

	require.NoError(t, prof.Submit())
	require.Len(t, exported, 2)
	assert.Equal(t, session.Tags{
		TagService:     "mongodb:mongo-0:27018/shop",
		TagCommand:     "find",
		TagCollection:  "orders",
		session.EnvTag: "test",
	}, exported[0].Tags)
	assert.Equal(t, "true", exported[1].Tags[TagError])
}

func TestMonitor_UnknownAndUnprofiled(t *testing.T) {
	m := NewMonitor()
	started := startedEvent(t, 7, bson.D{{Key: "ping", Value: 1}})
	m.Started(context.Background(), started)
	m.Succeeded(context.Background(), &event.CommandSucceededEvent{CommandFinishedEvent: finishedEvent(started)})
	m.Failed(context.Background(), nil)
	m.Started(context.Background(), nil)
}

func TestGetAddr(t *testing.T) {
	assert.Equal(t, "mongo-0:27017", getAddr(&event.CommandStartedEvent{ConnectionID: "mongo-0[-1]"}))
	assert.Equal(t, "10.0.0.1:27020", getAddr(&event.CommandStartedEvent{ConnectionID: "10.0.0.1:27020[-9]"}))
}

func TestTryGetCollection(t *testing.T) {
	assert.Equal(t, "orders", tryGetCollection(startedEvent(t, 1, bson.D{{Key: "find", Value: "orders"}})))
	assert.Equal(t, "", tryGetCollection(startedEvent(t, 1, bson.D{{Key: "ping", Value: 1}})))
}
