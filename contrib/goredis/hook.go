package goredis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/extra/rediscmd/v8"
	"github.com/go-redis/redis/v8"

	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	ItemName = "redis"

	TagService = "service"
	TagCommand = "cmd"
	TagError   = "error"
)

type itemKey struct{}

type ProfilingHook struct {
	addr string
	db   int

	callService string
}

type config struct {
	db int
}

func newDefaultConfig() *config {
	return &config{}
}

type Option func(*config)

func WithDB(db int) Option {
	return func(cfg *config) {
		cfg.db = db
	}
}

// NewProfilingHook returns a hook recording one redis item per command or
// pipeline on the profiler carried by the command's context. Commands
// issued outside a profiled request are ignored.
func NewProfilingHook(addr string, opts ...Option) *ProfilingHook {
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	h := &ProfilingHook{addr: addr, db: cfg.db}
	h.callService = h.getCallService()
	return h
}

func (h *ProfilingHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	return h.start(ctx, cmd.Name(), 1), nil
}

func (h *ProfilingHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	h.finish(ctx, cmd.Err())
	return nil
}

func (h *ProfilingHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	summary, _ := rediscmd.CmdsString(cmds)
	return h.start(ctx, summary, len(cmds)), nil
}

func (h *ProfilingHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	var err error
	if len(cmds) > 0 {
		err = cmds[0].Err()
	}
	h.finish(ctx, err)
	return nil
}

func (h *ProfilingHook) start(ctx context.Context, command string, count int) context.Context {
	prof := profiler.FromContext(ctx)
	if prof == nil {
		return ctx
	}
	item := prof.CreateItem(ItemName, session.Tags{
		TagService: h.callService,
		TagCommand: command,
	}, count)
	return context.WithValue(ctx, itemKey{}, item)
}

func (h *ProfilingHook) finish(ctx context.Context, err error) {
	item, ok := ctx.Value(itemKey{}).(*session.Item)
	if !ok {
		return
	}
	if err != nil && err != redis.Nil {
		item.SetTag(TagError, strconv.FormatBool(true))
	}
	profiler.FromContext(ctx).AddItem(item)
}

func (h *ProfilingHook) getCallService() string {
	if h.db == 0 {
		return "redis:" + h.addr
	}
	return fmt.Sprintf("redis:%s/%d", h.addr, h.db)
}
