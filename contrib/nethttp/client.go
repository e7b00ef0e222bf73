package nethttp

import (
	"net/http"
	"strconv"

	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	ItemName = "http_call"

	TagService = "service"
	TagMethod  = "method"
	TagStatus  = "status"
)

type Config struct {
	clientServiceGetter func(req *http.Request) string
}

type Option func(*Config)

func WithClientServiceGetter(f func(req *http.Request) string) Option {
	return func(cfg *Config) {
		if f != nil {
			cfg.clientServiceGetter = f
		}
	}
}

func newDefaultConfig() *Config {
	return &Config{
		clientServiceGetter: func(req *http.Request) string {
			if req.URL != nil {
				return req.URL.Host
			}
			return ""
		},
	}
}

type roundTripper struct {
	cfg  *Config
	base http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return rt.base.RoundTrip(req)
	}
	prof := profiler.FromContext(req.Context())
	if prof == nil {
		return rt.base.RoundTrip(req)
	}
	clientService := "empty"
	if cs := rt.cfg.clientServiceGetter(req); cs != "" {
		clientService = cs
	}
	item := prof.CreateItem(ItemName, session.Tags{
		TagService: clientService,
		TagMethod:  req.Method,
	}, 1)
	res, err := rt.base.RoundTrip(req)
	if err != nil {
		item.SetTag(TagStatus, "error")
	} else {
		item.SetTag(TagStatus, strconv.Itoa(res.StatusCode))
	}
	prof.AddItem(item)
	return res, err
}

// WrapClient records an http_call item for every request c sends with a
// profiled context.
func WrapClient(c *http.Client, opts ...Option) *http.Client {
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	c.Transport = &roundTripper{
		cfg:  cfg,
		base: c.Transport,
	}
	return c
}
