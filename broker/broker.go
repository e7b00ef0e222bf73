package broker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

const DefaultName = "default"

var (
	ErrHandleClosed = errors.New("broker handle is closed")
)

// Entry is one topic and its serialized payloads, in send order.
type Entry struct {
	Topic    string
	Messages []string
}

type Batch []Entry

// Size is the number of payloads in the batch.
func (b Batch) Size() int {
	n := 0
	for _, e := range b {
		n += len(e.Messages)
	}
	return n
}

// Handle is a named publishing endpoint. Send blocks until the broker has
// accepted or rejected the whole batch.
type Handle interface {
	Send(ctx context.Context, batch Batch) error
	Close() error
}

// Registry maps names to handles. Lookups are safe from any goroutine.
type Registry struct {
	lock    sync.RWMutex
	handles map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: map[string]Handle{}}
}

// Register replaces any handle already registered under name.
func (r *Registry) Register(name string, h Handle) {
	if h == nil {
		panic(fmt.Sprintf("broker handle %q is nil", name))
	}
	r.lock.Lock()
	r.handles[name] = h
	r.lock.Unlock()
}

func (r *Registry) Handle(name string) (Handle, bool) {
	r.lock.RLock()
	h, ok := r.handles[name]
	r.lock.RUnlock()
	return h, ok
}

func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return sortedNames(r.handles)
}

// Close closes and forgets every handle, returning the first error.
func (r *Registry) Close() error {
	r.lock.Lock()
	handles := r.handles
	r.handles = map[string]Handle{}
	r.lock.Unlock()

	var first error
	for _, name := range sortedNames(handles) {
		if err := handles[name].Close(); err != nil && first == nil {
			first = fmt.Errorf("close broker %s: %w", name, err)
		}
	}
	return first
}

func sortedNames(handles map[string]Handle) []string {
	names := make([]string, 0, len(handles))
	for name := range handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
