package gin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/volcengine/apminsight-profiler-go/logger"
	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	ControllerItemName = "controller"
	SessionIDHeader    = "x-profile-session-id"
)

type Config struct {
	logger       logger.Logger
	dumpMode     session.Mode
	sessionOpts  []session.Option
	profilerOpts []profiler.Option
}

type Option func(*Config)

func WithLogger(l logger.Logger) Option {
	return func(config *Config) {
		if l != nil {
			config.logger = l
		}
	}
}

// WithDumpMode sets the mode of the dump logged when the response is done.
func WithDumpMode(mode session.Mode) Option {
	return func(config *Config) {
		config.dumpMode = mode
	}
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(config *Config) {
		config.sessionOpts = append(config.sessionOpts, opts...)
	}
}

func WithProfilerOptions(opts ...profiler.Option) Option {
	return func(config *Config) {
		config.profilerOpts = append(config.profilerOpts, opts...)
	}
}

// NewMiddleware gives every request its own profiler, reachable with
// profiler.FromContext(c.Request.Context()). When the handler returns, a
// controller item is added, the dump is logged and the session is submitted
// to exporter.
func NewMiddleware(env string, exporter session.Exporter, opts ...Option) gin.HandlerFunc {
	if exporter == nil {
		panic("exporter is nil")
	}
	config := Config{
		logger:   &logger.NoopLogger{},
		dumpMode: session.ModeMedium,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return func(c *gin.Context) {
		resourceName := c.FullPath()
		if resourceName == "" {
			resourceName = "unknown"
		}

		sess := session.New(exporter, config.sessionOpts...)
		prof := profiler.New(sess, env, config.profilerOpts...)
		c.Request = c.Request.WithContext(profiler.ContextWithProfiler(c.Request.Context(), prof))
		c.Writer.Header().Add(SessionIDHeader, sess.ID())

		item := prof.CreateItem(ControllerItemName, session.Tags{
			"method":   c.Request.Method,
			"resource": resourceName,
		}, 1)

		isPanic := true
		defer func() {
			status := c.Writer.Status()
			if isPanic {
				status = http.StatusInternalServerError // runs before gin's recovery writes the status
			}
			item.SetTag("status", strconv.Itoa(status))
			prof.AddItem(item)

			config.logger.Info(logger.Record{
				Type:   "profile",
				Msg:    resourceName,
				Detail: prof.Dump(config.dumpMode),
			})
			if err := prof.Submit(); err != nil {
				config.logger.Error(logger.Record{
					Type: "profile",
					Msg:  "submit session",
					Err:  err,
				})
			}
		}()

		c.Next()
		isPanic = false
	}
}

// NewGinContextAdapter lets code holding a *gin.Context reach the request
// profiler through the context.Context interface.
func NewGinContextAdapter() func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		if ctx == nil {
			return nil
		}
		if c, ok := ctx.(*gin.Context); ok {
			return c.Request.Context()
		}
		return ctx
	}
}

// FromGinContext returns the request profiler, or nil outside the middleware.
func FromGinContext(c *gin.Context) *profiler.Profiler {
	if c == nil || c.Request == nil {
		return nil
	}
	return profiler.FromContext(c.Request.Context())
}
