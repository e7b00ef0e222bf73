package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Exporter ships finalized records out of the process.
type Exporter interface {
	Export(records []Record) error
}

type ExporterFunc func(records []Record) error

func (f ExporterFunc) Export(records []Record) error {
	return f(records)
}

// Session accumulates the finalized items of one request.
type Session interface {
	ID() string
	// NewItem creates a live item. The session does not retain it.
	NewItem(name string, tags Tags, count int) *Item
	// Add finalizes item and records it. It reports false when the item had
	// already been finalized.
	Add(item *Item) bool
	// Record stores a pre-finalized item.
	Record(r Record)
	// Submit hands every finalized item to the exporter and forgets them.
	Submit() error
	// Dump aggregates the finalized items only.
	Dump(mode Mode) Dump
}

type Config struct {
	now func() time.Time
}

type Option func(*Config)

// WithClock replaces time.Now as the stopwatch of every item.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.now = now
		}
	}
}

var _ Session = &memSession{}

type memSession struct {
	id       string
	exporter Exporter
	now      func() time.Time

	lock   sync.Mutex
	nextID uint64
	items  []*Item
}

func New(exporter Exporter, opts ...Option) Session {
	if exporter == nil {
		panic("session exporter is nil")
	}
	config := Config{now: time.Now}
	for _, opt := range opts {
		opt(&config)
	}
	return &memSession{
		id:       newSessionID(),
		exporter: exporter,
		now:      config.now,
	}
}

func newSessionID() string {
	randUUID, _ := uuid.NewRandom()
	return strings.Replace(randUUID.String(), "-", "", -1)
}

func (s *memSession) ID() string {
	return s.id
}

func (s *memSession) genID() uint64 {
	s.lock.Lock()
	s.nextID++
	id := s.nextID
	s.lock.Unlock()
	return id
}

func (s *memSession) NewItem(name string, tags Tags, count int) *Item {
	return newItem(s.genID(), name, tags, count, s.now)
}

func (s *memSession) Add(item *Item) bool {
	if item == nil || !item.finish() {
		return false
	}
	s.lock.Lock()
	s.items = append(s.items, item)
	s.lock.Unlock()
	return true
}

func (s *memSession) Record(r Record) {
	item := newItem(s.genID(), r.Name, r.Tags, r.Count, s.now)
	item.finishWith(r.Duration)
	s.lock.Lock()
	s.items = append(s.items, item)
	s.lock.Unlock()
}

func (s *memSession) Submit() error {
	s.lock.Lock()
	items := s.items
	s.items = nil
	s.lock.Unlock()
	if len(items) == 0 {
		return nil
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, item.Snapshot())
	}
	return s.exporter.Export(records)
}

func (s *memSession) Dump(mode Mode) Dump {
	s.lock.Lock()
	items := make([]*Item, len(s.items))
	copy(items, s.items)
	s.lock.Unlock()

	dump := Dump{}
	switch mode {
	case ModeMinimize:
		for _, item := range items {
			n, _ := dump[item.Name()].(int)
			dump[item.Name()] = n + item.Count()
		}
	case ModeMedium:
		for _, item := range items {
			MergeMedium(dump, item.Snapshot())
		}
	default:
		for _, item := range items {
			records, _ := dump[item.Name()].([]Record)
			dump[item.Name()] = append(records, item.Snapshot())
		}
	}
	return dump
}

// MergeMedium folds r into the numeric medium-mode groups of dump.
func MergeMedium(dump Dump, r Record) {
	groups, ok := dump[r.Name].(map[string]*Aggregate)
	if !ok {
		groups = map[string]*Aggregate{}
		dump[r.Name] = groups
	}
	key := BucketKey(r.Tags)
	agg, ok := groups[key]
	if !ok {
		agg = &Aggregate{}
		groups[key] = agg
	}
	agg.Add(r.Count, r.Duration)
}
