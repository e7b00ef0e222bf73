package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/volcengine/apminsight-profiler-go/broker"
	"github.com/volcengine/apminsight-profiler-go/logger"
	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	DefaultOverloadThreshold = 1024 * 1024
	DefaultSlowThreshold     = 100 * time.Millisecond
	DefaultPreviewLength     = 100
)

const (
	ItemName      = "kafka"
	ErrorItemName = "error"

	TagOperator = "operator"
	TagTopic    = "topic"
	TagOverload = "overload"
	TagTimeout  = "timeout"
	TagType     = "type"

	OperatorProduce = "produce"

	logType = "kafka"
)

type Config struct {
	overloadThreshold int
	slowThreshold     time.Duration
	previewLength     int
}

type Option func(*Config)

// WithOverloadThreshold sets the payload size in bytes above which a
// publish is tagged as overloaded.
func WithOverloadThreshold(n int) Option {
	return func(config *Config) {
		config.overloadThreshold = n
	}
}

// WithSlowThreshold sets the publish duration above which a publish is
// tagged as timed out.
func WithSlowThreshold(d time.Duration) Option {
	return func(config *Config) {
		config.slowThreshold = d
	}
}

func WithPreviewLength(n int) Option {
	return func(config *Config) {
		config.previewLength = n
	}
}

type sendConfig struct {
	broker string
}

type SendOption func(*sendConfig)

// Broker selects the registered handle to publish to. The default is
// broker.DefaultName.
func Broker(name string) SendOption {
	return func(config *sendConfig) {
		config.broker = name
	}
}

// Publisher validates, serializes and dispatches batches, recording each
// publish on the profiler found in the request context. It never retries.
type Publisher struct {
	registry *broker.Registry
	logger   logger.Logger
	config   Config
}

func New(registry *broker.Registry, l logger.Logger, opts ...Option) *Publisher {
	if registry == nil {
		panic("broker registry is nil")
	}
	if l == nil {
		l = &logger.NoopLogger{}
	}
	config := Config{
		overloadThreshold: DefaultOverloadThreshold,
		slowThreshold:     DefaultSlowThreshold,
		previewLength:     DefaultPreviewLength,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Publisher{
		registry: registry,
		logger:   l,
		config:   config,
	}
}

// Send publishes batch and reports whether the broker accepted it.
// A broker name without a registered handle, or a ctx without a profiler,
// is a configuration error and panics. Every other failure is logged,
// recorded as an error item and reported as false.
func (p *Publisher) Send(ctx context.Context, batch Batch, opts ...SendOption) bool {
	name := sendBroker(opts)
	handle, prof := p.resolve(ctx, name)

	item := prof.CreateItem(ItemName, session.Tags{
		TagOperator: OperatorProduce,
		TagTopic:    batch.firstTopic(),
	}, 1)

	prepared, err := p.prepare(name, batch, item)
	if err == nil {
		err = dispatch(ctx, handle, prepared)
	}
	if err != nil {
		// item stays in flight: where the publish stopped is unknown
		p.fail(prof, name, batch, err)
		return false
	}

	if item.Elapsed() > p.config.slowThreshold {
		item.SetTag(TagTimeout, TagTimeout)
	}
	prof.AddItem(item)
	p.logger.Info(logger.Record{
		Type: logType,
		Msg:  "produce",
		Detail: map[string]interface{}{
			"broker": name,
			"batch":  summarize(prepared, p.config.previewLength),
		},
	})
	return true
}

// SendOneMessage publishes a single message. Structured and sequence
// messages are encoded to one JSON payload first.
func (p *Publisher) SendOneMessage(ctx context.Context, topic string, message interface{}, opts ...SendOption) bool {
	payload, err := serialize(message)
	if err != nil {
		name := sendBroker(opts)
		_, prof := p.resolve(ctx, name)
		p.fail(prof, name, Batch{{Topic: topic, Messages: message}}, err)
		return false
	}
	return p.Send(ctx, Batch{{Topic: topic, Messages: payload}}, opts...)
}

func sendBroker(opts []SendOption) string {
	config := sendConfig{broker: broker.DefaultName}
	for _, opt := range opts {
		opt(&config)
	}
	return config.broker
}

func (p *Publisher) resolve(ctx context.Context, name string) (broker.Handle, *profiler.Profiler) {
	handle, ok := p.registry.Handle(name)
	if !ok {
		panic(fmt.Sprintf("broker %q is not registered", name))
	}
	prof := profiler.FromContext(ctx)
	if prof == nil {
		panic("context carries no profiler")
	}
	return handle, prof
}

func (p *Publisher) prepare(name string, batch Batch, item *session.Item) (broker.Batch, error) {
	prepared := make(broker.Batch, 0, len(batch))
	for _, e := range batch {
		msgs := payloads(e.Messages)
		entry := broker.Entry{Topic: e.Topic, Messages: make([]string, 0, len(msgs))}
		for _, m := range msgs {
			s, err := serialize(m)
			if err != nil {
				return nil, err
			}
			if len(s) > p.config.overloadThreshold {
				item.SetTag(TagOverload, TagOverload)
				p.logger.Error(logger.Record{
					Type: logType,
					Msg:  "message exceeds size limit",
					Detail: map[string]interface{}{
						"broker":  name,
						"topic":   e.Topic,
						"size":    len(s),
						"preview": preview(s, p.config.previewLength),
					},
				})
			}
			entry.Messages = append(entry.Messages, s)
		}
		prepared = append(prepared, entry)
	}
	return prepared, nil
}

func dispatch(ctx context.Context, h broker.Handle, batch broker.Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("broker handle panic: %v", r)
		}
	}()
	return h.Send(ctx, batch)
}

func (p *Publisher) fail(prof *profiler.Profiler, name string, batch Batch, err error) {
	prof.SubmitItem(session.Record{
		Name: ErrorItemName,
		Tags: session.Tags{
			TagType:     logType,
			TagOperator: OperatorProduce,
		},
		Count: 1,
	})
	p.logger.Critical(logger.Record{
		Type: logType,
		Msg:  "produce failed",
		Err:  err,
		Detail: map[string]interface{}{
			"broker": name,
			"batch":  batch,
		},
	})
}
