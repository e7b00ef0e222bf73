package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTagKey(t *testing.T) {
	tests := []struct {
		name string
		tags Tags
		want string
	}{
		{name: "nil", tags: nil, want: ""},
		{name: "env only", tags: Tags{EnvTag: "prod"}, want: ""},
		{name: "single", tags: Tags{"topic": "a"}, want: "topic=a"},
		{name: "sorted", tags: Tags{"topic": "a", "operator": "produce", EnvTag: "prod"}, want: "operator=produce,topic=a"},
		{name: "empty value", tags: Tags{"topic": ""}, want: "topic="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TagKey(tt.tags))
		})
	}
}

func TestTagKey_Deterministic(t *testing.T) {
	tags := Tags{"c": "3", "a": "1", "b": "2", "d": "4"}
	first := TagKey(tags)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, TagKey(tags.Clone()))
	}
}

func TestTagKey_Escaping(t *testing.T) {
	assert.Equal(t, `a=1\,b\=2`, TagKey(Tags{"a": "1,b=2"}))
	assert.Equal(t, `a\\=1`, TagKey(Tags{`a\`: "1"}))

	distinct := []Tags{
		{"a": "1,b=2"},
		{"a": "1", "b": "2"},
		{"a=1,b": "2"},
		{`a\`: `,b=2`},
		{"a": `1\`, "b": "2"},
	}
	seen := map[string]int{}
	for i, tags := range distinct {
		key := TagKey(tags)
		if j, ok := seen[key]; ok {
			t.Fatalf("tags %v and %v share key %q", distinct[j], tags, key)
		}
		seen[key] = i
	}
}

func TestMergeMedium_DistinctBuckets(t *testing.T) {
	dump := Dump{}
	MergeMedium(dump, Record{Name: "kafka", Tags: Tags{"a": "1,b=2"}, Count: 1})
	MergeMedium(dump, Record{Name: "kafka", Tags: Tags{"a": "1", "b": "2"}, Count: 1})
	groups, ok := dump["kafka"].(map[string]*Aggregate)
	assert.True(t, ok)
	assert.Len(t, groups, 2)
}

func TestBucketKey(t *testing.T) {
	assert.Equal(t, UntaggedKey, BucketKey(Tags{EnvTag: "prod"}))
	assert.Equal(t, "count=1", BucketKey(Tags{"count": "1"}), "tag keys never collide with the untagged bucket")
}

func TestAggregate_String(t *testing.T) {
	assert.Equal(t, "1 (50ms)", Aggregate{Count: 1, Duration: 50 * time.Millisecond}.String())
	assert.Equal(t, "3", Aggregate{Count: 3}.String())
	assert.Equal(t, "2 (8ms)", Aggregate{Count: 2, Duration: 15 * time.Millisecond}.String())
	assert.Equal(t, "3 (33ms)", Aggregate{Count: 3, Duration: 100 * time.Millisecond}.String())
	assert.Equal(t, "0", Aggregate{Duration: time.Second}.String())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeMedium, ParseMode("medium"))
	assert.Equal(t, ModeMinimize, ParseMode(" Minimize "))
	assert.Equal(t, ModeFull, ParseMode("full"))
	assert.Equal(t, ModeFull, ParseMode("nonsense"))
	assert.Equal(t, ModeFull, ParseMode(""))
}
