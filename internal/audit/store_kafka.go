package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"shc-verifier/internal/platform/kafka/producer"
)

// KafkaStore appends events to a Kafka topic through the platform producer.
// Events are JSON-encoded and keyed by uid so one participant's trail stays
// in partition order.
type KafkaStore struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaStore(p *producer.Producer, topic string) *KafkaStore {
	return &KafkaStore{producer: p, topic: topic}
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(strconv.FormatInt(event.UID, 10)),
		Value: value,
	})
}
