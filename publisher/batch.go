package publisher

import (
	"fmt"

	"github.com/volcengine/apminsight-profiler-go/broker"
	"github.com/volcengine/apminsight-profiler-go/internal/jsoncodec"
)

// Entry is one topic and its messages. Messages is either a single payload
// or a sequence ([]interface{} or []string). A payload is a raw string or
// []byte, or any other value, which is sent as canonical JSON.
type Entry struct {
	Topic    string      `json:"topic"`
	Messages interface{} `json:"messages"`
}

type Batch []Entry

func (b Batch) firstTopic() string {
	if len(b) == 0 {
		return ""
	}
	return b[0].Topic
}

func payloads(messages interface{}) []interface{} {
	switch v := messages.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case []string:
		ret := make([]interface{}, 0, len(v))
		for _, s := range v {
			ret = append(ret, s)
		}
		return ret
	default:
		return []interface{}{v}
	}
}

// serialize returns raw payloads unchanged and encodes everything else.
func serialize(payload interface{}) (string, error) {
	switch v := payload.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		s, err := jsoncodec.MarshalString(v)
		if err != nil {
			return "", fmt.Errorf("serialize %T: %w", payload, err)
		}
		return s, nil
	}
}

// preview is the first n characters of s.
func preview(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// entrySummary stands in for a published entry in logs, so payloads of any
// size never reach the log sink.
type entrySummary struct {
	Topic    string `json:"topic"`
	Messages int    `json:"messages"`
	Bytes    int    `json:"bytes"`
	Preview  string `json:"preview"`
}

func summarize(batch broker.Batch, previewLength int) []entrySummary {
	summaries := make([]entrySummary, 0, len(batch))
	for _, e := range batch {
		summary := entrySummary{Topic: e.Topic, Messages: len(e.Messages)}
		for _, m := range e.Messages {
			summary.Bytes += len(m)
		}
		if len(e.Messages) > 0 {
			summary.Preview = preview(e.Messages[0], previewLength)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
