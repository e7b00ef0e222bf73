package session

import (
	"sync"
	"time"
)

// Tags are the dimensions of an item. Setting an existing key overwrites it.
type Tags map[string]string

// Clone returns a copy that can be modified without touching t.
func (t Tags) Clone() Tags {
	c := make(Tags, len(t)+1)
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Item is one observed operation. It is live (in flight) until finish is
// called, after which its duration is frozen.
type Item struct {
	id    uint64
	name  string
	count int

	tagsLock sync.Mutex
	tags     Tags

	now       func() time.Time
	startTime time.Time

	stateLock sync.Mutex
	duration  time.Duration
	finished  bool
}

func newItem(id uint64, name string, tags Tags, count int, now func() time.Time) *Item {
	if count < 0 {
		count = 0
	}
	return &Item{
		id:        id,
		name:      name,
		count:     count,
		tags:      tags.Clone(),
		now:       now,
		startTime: now(),
	}
}

func (i *Item) ID() uint64 {
	return i.id
}

func (i *Item) Name() string {
	return i.name
}

func (i *Item) Count() int {
	return i.count
}

// Tags returns a copy of the item's tags.
func (i *Item) Tags() Tags {
	i.tagsLock.Lock()
	defer i.tagsLock.Unlock()
	return i.tags.Clone()
}

func (i *Item) Tag(key string) (string, bool) {
	i.tagsLock.Lock()
	v, ok := i.tags[key]
	i.tagsLock.Unlock()
	return v, ok
}

func (i *Item) SetTag(key, value string) *Item {
	i.tagsLock.Lock()
	i.tags[key] = value
	i.tagsLock.Unlock()
	return i
}

// Elapsed is the live stopwatch value while in flight and the frozen
// duration once finished.
func (i *Item) Elapsed() time.Duration {
	i.stateLock.Lock()
	defer i.stateLock.Unlock()
	if i.finished {
		return i.duration
	}
	return i.now().Sub(i.startTime)
}

func (i *Item) StartTime() time.Time {
	return i.startTime
}

func (i *Item) Finished() bool {
	i.stateLock.Lock()
	defer i.stateLock.Unlock()
	return i.finished
}

// finish freezes the duration. Only the first call wins.
func (i *Item) finish() bool {
	i.stateLock.Lock()
	defer i.stateLock.Unlock()
	if i.finished {
		return false
	}
	i.duration = i.now().Sub(i.startTime)
	i.finished = true
	return true
}

// finishWith freezes the item with a caller supplied duration.
func (i *Item) finishWith(d time.Duration) bool {
	i.stateLock.Lock()
	defer i.stateLock.Unlock()
	if i.finished {
		return false
	}
	if d < 0 {
		d = 0
	}
	i.duration = d
	i.finished = true
	return true
}

// Snapshot captures the item at this moment.
func (i *Item) Snapshot() Record {
	return Record{
		ID:       i.id,
		Name:     i.name,
		Tags:     i.Tags(),
		Count:    i.count,
		Duration: i.Elapsed(),
	}
}

// Record is an immutable view of an item, finalized or not.
type Record struct {
	ID       uint64        `json:"id"`
	Name     string        `json:"name"`
	Tags     Tags          `json:"tags"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
}

// DurationMs is the duration in (fractional) milliseconds.
func (r Record) DurationMs() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}
