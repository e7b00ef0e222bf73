package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/volcengine/apminsight-profiler-go/logger"
	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

// only unary calls are profiled

const (
	ServerItemName = "grpc"
	ClientItemName = "grpc_call"

	TagMethod  = "method"
	TagService = "service"
	TagCode    = "code"
)

type Config struct {
	logger       logger.Logger
	dumpMode     session.Mode
	sessionOpts  []session.Option
	profilerOpts []profiler.Option
}

func newDefaultConfig() *Config {
	return &Config{
		logger:   &logger.NoopLogger{},
		dumpMode: session.ModeMedium,
	}
}

type Option func(*Config)

func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

func WithDumpMode(mode session.Mode) Option {
	return func(cfg *Config) {
		cfg.dumpMode = mode
	}
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(cfg *Config) {
		cfg.sessionOpts = append(cfg.sessionOpts, opts...)
	}
}

func WithProfilerOptions(opts ...profiler.Option) Option {
	return func(cfg *Config) {
		cfg.profilerOpts = append(cfg.profilerOpts, opts...)
	}
}

// NewUnaryServerInterceptor gives every call its own profiler in the handler
// context. When the handler returns, a grpc item tagged with the method and
// status code is added, the dump is logged and the session is submitted.
func NewUnaryServerInterceptor(env string, exporter session.Exporter, opts ...Option) grpc.UnaryServerInterceptor {
	if exporter == nil {
		panic("exporter is nil")
	}
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return func(ctx context.Context, req interface{},
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		method := "unknown"
		if info != nil && info.FullMethod != "" {
			method = info.FullMethod
		}

		sess := session.New(exporter, cfg.sessionOpts...)
		prof := profiler.New(sess, env, cfg.profilerOpts...)
		item := prof.CreateItem(ServerItemName, session.Tags{TagMethod: method}, 1)

		isPanic := true
		var err error
		defer func() {
			code := status.Code(err).String()
			if isPanic {
				code = "panic"
			}
			item.SetTag(TagCode, code)
			prof.AddItem(item)

			cfg.logger.Info(logger.Record{
				Type:   "profile",
				Msg:    method,
				Detail: prof.Dump(cfg.dumpMode),
			})
			if submitErr := prof.Submit(); submitErr != nil {
				cfg.logger.Error(logger.Record{
					Type: "profile",
					Msg:  "submit session",
					Err:  submitErr,
				})
			}
		}()

		var resp interface{}
		resp, err = handler(profiler.ContextWithProfiler(ctx, prof), req)
		isPanic = false
		return resp, err
	}
}

// NewUnaryClientInterceptor records a grpc_call item for every call made
// with a profiled context.
func NewUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		prof := profiler.FromContext(ctx)
		if prof == nil {
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}
		target := "unknown"
		if cc != nil {
			target = cc.Target()
		}
		item := prof.CreateItem(ClientItemName, session.Tags{
			TagService: target,
			TagMethod:  method,
		}, 1)
		err := invoker(ctx, method, req, reply, cc, callOpts...)
		item.SetTag(TagCode, status.Code(err).String())
		prof.AddItem(item)
		return err
	}
}
