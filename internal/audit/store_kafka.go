package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaStore publishes events to a topic as JSON. The record key is the
// account id so one account's trail stays ordered within a partition.
type KafkaStore struct {
	client *kgo.Client
}

func NewKafkaStore(brokers []string, topic string) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build kafka client: %w", err)
	}
	return &KafkaStore{client: client}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.AccountID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce audit event: %w", err)
	}
	return nil
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
