package profiler

import (
	"sort"
	"time"

	"github.com/volcengine/apminsight-profiler-go/session"
)

// arena holds in-flight items by identity. Items equal by content are
// still distinct entries.
type arena struct {
	slots map[uint64]*session.Item
}

func newArena() *arena {
	return &arena{slots: map[uint64]*session.Item{}}
}

func (a *arena) insert(item *session.Item) {
	a.slots[item.ID()] = item
}

// remove is a no-op for absent items.
func (a *arena) remove(item *session.Item) bool {
	if _, ok := a.slots[item.ID()]; !ok {
		return false
	}
	delete(a.slots, item.ID())
	return true
}

func (a *arena) len() int {
	return len(a.slots)
}

// items returns the entries in creation order.
func (a *arena) items() []*session.Item {
	ret := make([]*session.Item, 0, len(a.slots))
	for _, item := range a.slots {
		ret = append(ret, item)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID() < ret[j].ID()
	})
	return ret
}

// evict drops entries older than ttl and returns how many were dropped.
func (a *arena) evict(ttl time.Duration) int {
	n := 0
	for id, item := range a.slots {
		if item.Elapsed() > ttl {
			delete(a.slots, id)
			n++
		}
	}
	return n
}
