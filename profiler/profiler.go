package profiler

import (
	"sync"
	"time"

	"github.com/volcengine/apminsight-profiler-go/session"
)

const unknownName = "unknown"

type Config struct {
	inflightTTL time.Duration
}

type Option func(*Config)

// WithInflightTTL evicts in-flight items older than ttl before every
// CreateItem and Dump. Zero keeps abandoned items visible for the lifetime
// of the profiler.
func WithInflightTTL(ttl time.Duration) Option {
	return func(config *Config) {
		config.inflightTTL = ttl
	}
}

// Profiler wraps a request's Session and also tracks the items that have
// been created but not yet finalized, so that a dump taken while work is
// still running does not drop it.
type Profiler struct {
	session session.Session
	env     string
	config  Config

	lock     sync.Mutex
	inflight *arena
	evicted  int
}

func New(sess session.Session, env string, opts ...Option) *Profiler {
	if sess == nil {
		panic("profiler session is nil")
	}
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}
	return &Profiler{
		session:  sess,
		env:      env,
		config:   config,
		inflight: newArena(),
	}
}

func (p *Profiler) Env() string {
	return p.env
}

func (p *Profiler) Session() session.Session {
	return p.session
}

func (p *Profiler) withEnv(tags session.Tags) session.Tags {
	merged := tags.Clone()
	merged[session.EnvTag] = p.env
	return merged
}

// normalizeName maps empty names and the reserved full-dump key to "unknown".
func normalizeName(name string) string {
	if name == "" || name == session.PreparingKey {
		return unknownName
	}
	return name
}

// CreateItem starts a live item and tracks it until it is passed to AddItem.
func (p *Profiler) CreateItem(name string, tags session.Tags, count int) *session.Item {
	item := p.session.NewItem(normalizeName(name), p.withEnv(tags), count)
	p.lock.Lock()
	p.evictLocked()
	p.inflight.insert(item)
	p.lock.Unlock()
	return item
}

// AddItem stops tracking item and records it as finalized.
func (p *Profiler) AddItem(item *session.Item) {
	if item == nil {
		return
	}
	// items from CreateItem already carry env; this covers ones built elsewhere
	if v, ok := item.Tag(session.EnvTag); !ok || v != p.env {
		item.SetTag(session.EnvTag, p.env)
	}
	// the item must never be visible both in flight and finalized to Dump
	p.lock.Lock()
	defer p.lock.Unlock()
	p.inflight.remove(item)
	p.session.Add(item)
}

// Add records a finalized item that was never timed.
func (p *Profiler) Add(name string, tags session.Tags, count int) {
	p.session.Record(session.Record{
		Name:  normalizeName(name),
		Tags:  p.withEnv(tags),
		Count: count,
	})
}

// SubmitItem records a pre-finalized item, bypassing in-flight tracking.
func (p *Profiler) SubmitItem(r session.Record) {
	r.Name = normalizeName(r.Name)
	r.Tags = p.withEnv(r.Tags)
	p.session.Record(r)
}

// Submit exports the session's finalized items.
func (p *Profiler) Submit() error {
	return p.session.Submit()
}

// Inflight returns snapshots of the items still in flight, oldest first.
func (p *Profiler) Inflight() []session.Record {
	p.lock.Lock()
	items := p.inflight.items()
	p.lock.Unlock()
	records := make([]session.Record, 0, len(items))
	for _, item := range items {
		records = append(records, item.Snapshot())
	}
	return records
}

// Evicted is the number of in-flight items dropped by the TTL so far.
func (p *Profiler) Evicted() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.evicted
}

func (p *Profiler) evictLocked() {
	if p.config.inflightTTL <= 0 || p.inflight.len() == 0 {
		return
	}
	p.evicted += p.inflight.evict(p.config.inflightTTL)
}
