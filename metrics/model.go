package metrics

import (
	"sort"
	"time"

	"github.com/volcengine/apminsight-profiler-go/session"
)

type t struct {
	key   string
	value string
}

// point is a finalized record flattened for encoding. Tags are sorted so
// equal records encode to equal frames.
type point struct {
	name       string
	count      uint32
	durationMs float64
	tags       []t
}

func newPoint(r session.Record) point {
	p := point{
		name:       r.Name,
		durationMs: float64(r.Duration) / float64(time.Millisecond),
	}
	if r.Count > 0 {
		p.count = uint32(r.Count)
	}
	if len(r.Tags) != 0 {
		p.tags = make([]t, 0, len(r.Tags))
		for k, v := range r.Tags {
			p.tags = append(p.tags, t{key: k, value: v})
		}
		sort.Slice(p.tags, func(i, j int) bool {
			return p.tags[i].key < p.tags[j].key
		})
	}
	return p
}
