package profiler

import "context"

type profilerContextKey struct{}

var activeProfilerContextKey profilerContextKey

func ContextWithProfiler(ctx context.Context, p *Profiler) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activeProfilerContextKey, p)
}

// FromContext returns nil when ctx carries no profiler.
func FromContext(ctx context.Context) *Profiler {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(activeProfilerContextKey).(*Profiler)
	return p
}
