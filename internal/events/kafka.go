package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultKafkaTopic receives every event when no topic is configured.
const DefaultKafkaTopic = "forum.events"

// KafkaPublisher writes events to a single topic, keyed by PartitionKey.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a synchronous writer for brokers. No connection
// is made until the first publish.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka events backend needs at least one broker")
	}
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
	}}, nil
}

// PartitionKey keeps the events of one post, then one community, in order.
func PartitionKey(evt Event) string {
	switch {
	case evt.PostID != 0:
		return "post:" + strconv.FormatUint(uint64(evt.PostID), 10)
	case evt.CommunityID != 0:
		return "community:" + strconv.FormatUint(uint64(evt.CommunityID), 10)
	default:
		return evt.ID
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := evt.encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(PartitionKey(evt)),
		Value:   payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(evt.Type)}},
		Time:    evt.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
