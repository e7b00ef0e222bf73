package mongo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/event"

	"github.com/volcengine/apminsight-profiler-go/profiler"
	"github.com/volcengine/apminsight-profiler-go/session"
)

const (
	ItemName = "mongodb"

	TagService    = "service"
	TagCommand    = "cmd"
	TagCollection = "collection"
	TagError      = "error"
)

type itemKey struct {
	ConnectionID string
	RequestID    int64
}

type pending struct {
	prof *profiler.Profiler
	item *session.Item
}

type monitor struct {
	items map[itemKey]pending
	sync.Mutex
}

// NewMonitor returns a command monitor recording one mongodb item per
// command started with a profiled context. Set it with
// options.Client().SetMonitor.
func NewMonitor() *event.CommandMonitor {
	m := &monitor{
		items: make(map[itemKey]pending),
	}
	return &event.CommandMonitor{
		Started:   m.Started,
		Succeeded: m.Succeeded,
		Failed:    m.Failed,
	}
}

func (m *monitor) Started(ctx context.Context, evt *event.CommandStartedEvent) {
	if evt == nil {
		return
	}
	prof := profiler.FromContext(ctx)
	if prof == nil {
		return
	}
	tags := session.Tags{
		TagService: fmt.Sprintf("mongodb:%s/%s", getAddr(evt), evt.DatabaseName),
		TagCommand: evt.CommandName,
	}
	if collection := tryGetCollection(evt); collection != "" {
		tags[TagCollection] = collection
	}
	item := prof.CreateItem(ItemName, tags, 1)

	key := itemKey{
		ConnectionID: evt.ConnectionID,
		RequestID:    evt.RequestID,
	}
	m.Lock()
	m.items[key] = pending{prof: prof, item: item}
	m.Unlock()
}

func (m *monitor) Succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	if evt == nil {
		return
	}
	p, ok := m.take(&evt.CommandFinishedEvent)
	if !ok {
		return
	}
	p.prof.AddItem(p.item)
}

func (m *monitor) Failed(ctx context.Context, evt *event.CommandFailedEvent) {
	if evt == nil {
		return
	}
	p, ok := m.take(&evt.CommandFinishedEvent)
	if !ok {
		return
	}
	p.item.SetTag(TagError, strconv.FormatBool(true))
	p.prof.AddItem(p.item)
}

func getAddr(evt *event.CommandStartedEvent) string {
	addr := evt.ConnectionID
	if idx := strings.IndexByte(addr, '['); idx >= 0 {
		addr = addr[:idx]
	}
	port := "27017"
	if idx := strings.IndexByte(addr, ':'); idx >= 0 {
		port = addr[idx+1:]
		addr = addr[:idx]
	}
	return addr + ":" + port
}

func tryGetCollection(evt *event.CommandStartedEvent) string {
	kv, err := evt.Command.IndexErr(0)
	if err != nil {
		return ""
	}
	if kv.Key() != evt.CommandName {
		return ""
	}
	if v := kv.Value(); v.Type == bsontype.String {
		s, _ := v.StringValueOK()
		return s
	}
	return ""
}

func (m *monitor) take(evt *event.CommandFinishedEvent) (pending, bool) {
	key := itemKey{
		ConnectionID: evt.ConnectionID,
		RequestID:    evt.RequestID,
	}
	m.Lock()
	defer m.Unlock()
	p, ok := m.items[key]
	if ok {
		delete(m.items, key)
	}
	return p, ok
}
