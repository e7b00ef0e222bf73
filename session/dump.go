package session

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type Mode string

const (
	ModeFull     Mode = "full"
	ModeMedium   Mode = "medium"
	ModeMinimize Mode = "minimize"
)

// ParseMode maps unrecognized input to ModeFull.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMedium:
		return ModeMedium
	case ModeMinimize:
		return ModeMinimize
	default:
		return ModeFull
	}
}

// Dump is a snapshot aggregate. Its shape depends on the mode it was built with:
//
//	full:     name -> []Record, plus PreparingKey -> []Record of in-flight items
//	medium:   name -> map[tagKey]*Aggregate (formatted to map[tagKey]string by the profiler)
//	minimize: name -> int
type Dump map[string]interface{}

const (
	// PreparingKey holds the raw in-flight items of a full dump. It is
	// reserved: the profiler renames items called PreparingKey to "unknown".
	PreparingKey = "_preparing"
	// UntaggedKey is the medium-mode bucket of items without tags. Tag keys
	// always contain an unescaped '=', so it never collides with one.
	UntaggedKey = "count"
	// EnvTag is the environment discriminator merged into every item.
	EnvTag = "env"
)

// Aggregate accumulates count and total duration of one medium-mode group.
type Aggregate struct {
	Count    int
	Duration time.Duration
}

func (a *Aggregate) Add(count int, d time.Duration) {
	a.Count += count
	a.Duration += d
}

// String renders "<count> (<avgMs>ms)", or "<count>" when no time was recorded.
func (a Aggregate) String() string {
	if a.Duration == 0 || a.Count == 0 {
		return fmt.Sprintf("%d", a.Count)
	}
	totalMs := float64(a.Duration) / float64(time.Millisecond)
	return fmt.Sprintf("%d (%dms)", a.Count, int64(math.Round(totalMs/float64(a.Count))))
}

var tagKeyEscaper = strings.NewReplacer(`\`, `\\`, `,`, `\,`, `=`, `\=`)

// TagKey builds the canonical bucket key of a tag mapping: keys sorted,
// "k=v" pairs joined by ",". Backslash, ',' and '=' inside keys and values
// are escaped with a backslash, so distinct mappings never share a key.
// The env tag is shared by every item of a session and is left out. An
// empty result means the item is untagged.
func TagKey(tags Tags) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		if k == EnvTag {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		_, _ = tagKeyEscaper.WriteString(&b, k)
		b.WriteByte('=')
		_, _ = tagKeyEscaper.WriteString(&b, tags[k])
	}
	return b.String()
}

// BucketKey is TagKey with untagged items mapped to UntaggedKey.
func BucketKey(tags Tags) string {
	if key := TagKey(tags); key != "" {
		return key
	}
	return UntaggedKey
}
