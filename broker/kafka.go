package broker

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
)

var _ Handle = &KafkaHandle{}

// KafkaHandle sends batches through a sarama SyncProducer.
type KafkaHandle struct {
	producer sarama.SyncProducer
}

// NewKafkaHandle dials addrs. cfg may be nil; Return.Successes is forced on
// because the sync producer requires it.
func NewKafkaHandle(addrs []string, cfg *sarama.Config) (*KafkaHandle, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	p, err := sarama.NewSyncProducer(addrs, cfg)
	if err != nil {
		return nil, fmt.Errorf("new kafka producer: %w", err)
	}
	return NewKafkaHandleFromProducer(p), nil
}

func NewKafkaHandleFromProducer(p sarama.SyncProducer) *KafkaHandle {
	if p == nil {
		panic("sarama producer is nil")
	}
	return &KafkaHandle{producer: p}
}

// Send does not interrupt an in-progress SendMessages; ctx is only checked
// before dispatch.
func (h *KafkaHandle) Send(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msgs := make([]*sarama.ProducerMessage, 0, batch.Size())
	for _, e := range batch {
		for _, m := range e.Messages {
			msgs = append(msgs, &sarama.ProducerMessage{
				Topic: e.Topic,
				Value: sarama.StringEncoder(m),
			})
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := h.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("kafka produce %d messages: %w", len(msgs), err)
	}
	return nil
}

func (h *KafkaHandle) Close() error {
	return h.producer.Close()
}
