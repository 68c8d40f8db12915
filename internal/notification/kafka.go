package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// producer is the subset of *kgo.Client the notifier needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaNotifier publishes ledger events to a Kafka topic, keyed by account so
// events for one account stay ordered within a partition.
type KafkaNotifier struct {
	client producer
	topic  string
}

// NewKafkaNotifier wraps a connected franz-go client.
func NewKafkaNotifier(client *kgo.Client, topic string) *KafkaNotifier {
	return &KafkaNotifier{client: client, topic: topic}
}

// Send produces the message synchronously.
func (n *KafkaNotifier) Send(ctx context.Context, message Message) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode ledger event: %w", err)
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(message.AccountID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(message.Kind)},
		},
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce ledger event: %w", err)
	}
	return nil
}

// Multi fans a message out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
