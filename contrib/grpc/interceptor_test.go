package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/volcengine/apminsight-profiler-go/logger"
	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

type recordingExporter struct {
	lock    sync.Mutex
	records []session.Record
}

func (e *recordingExporter) Export(records []session.Record) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.records = append(e.records, records...)
	return nil
}

type recordingLogger struct {
	logger.NoopLogger
	infos []logger.Record
}

func (l *recordingLogger) Info(r logger.Record) {
	l.infos = append(l.infos, r)
}

var info = &grpc.UnaryServerInfo{FullMethod: "/shop.Orders/Get"}

func TestUnaryServerInterceptor(t *testing.T) {
	exporter := &recordingExporter{}
	l := &recordingLogger{}
	interceptor := NewUnaryServerInterceptor("test", exporter, WithLogger(l), WithDumpMode(session.ModeMinimize))

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		prof := profiler.FromContext(ctx)
		require.NotNil(t, prof)
		prof.Add("cache", nil, 2)
		return "resp", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "resp", resp)

	require.Len(t, l.infos, 1)
	assert.Equal(t, "/shop.Orders/Get", l.infos[0].Msg)
	assert.Equal(t, session.Dump{"cache": 2, ServerItemName: 1}, l.infos[0].Detail)

	require.Len(t, exporter.records, 2)
	server := exporter.records[1]
	assert.Equal(t, ServerItemName, server.Name)
	assert.Equal(t, session.Tags{TagMethod: "/shop.Orders/Get", TagCode: "OK", session.EnvTag: "test"}, server.Tags)
}

func TestUnaryServerInterceptor_Error(t *testing.T) {
	exporter := &recordingExporter{}
	interceptor := NewUnaryServerInterceptor("test", exporter)

	_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "no such order")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
	require.Len(t, exporter.records, 1)
	assert.Equal(t, "NotFound", exporter.records[0].Tags[TagCode])
}

func TestUnaryServerInterceptor_Panic(t *testing.T) {
	exporter := &recordingExporter{}
	interceptor := NewUnaryServerInterceptor("test", exporter)

	assert.Panics(t, func() {
		_, _ = interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})
	})
	require.Len(t, exporter.records, 1)
	assert.Equal(t, "panic", exporter.records[0].Tags[TagCode])
}

func TestUnaryServerInterceptor_NilExporter(t *testing.T) {
	assert.PanicsWithValue(t, "exporter is nil", func() {
		NewUnaryServerInterceptor("test", nil)
	})
}

func TestUnaryClientInterceptor(t *testing.T) {
	var exported []session.Record
	sess := session.New(session.ExporterFunc(func(records []session.Record) error {
		exported = append(exported, records...)
		return nil
	}))
	prof := profiler.New(sess, "test")
	ctx := profiler.ContextWithProfiler(context.Background(), prof)

	interceptor := NewUnaryClientInterceptor()
	err := interceptor(ctx, "/shop.Stock/Reserve", "req", nil, nil,
		func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			return status.Error(codes.Unavailable, "down")
		})
	assert.Equal(t, codes.Unavailable, status.Code(err))

	require.NoError(t, prof.Submit())
	require.Len(t, exported, 1)
	assert.Equal(t, session.Tags{
		TagService:     "unknown",
		TagMethod:      "/shop.Stock/Reserve",
		TagCode:        "Unavailable",
		session.EnvTag: "test",
	}, exported[0].Tags)
}

func TestUnaryClientInterceptor_WithoutProfiler(t *testing.T) {
	called := false
	err := NewUnaryClientInterceptor()(context.Background(), "/m", nil, nil, nil,
		func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			called = true
			return nil
		})
	assert.NoError(t, err)
	assert.True(t, called)
}
