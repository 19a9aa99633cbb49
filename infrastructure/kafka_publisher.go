package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes every message to one topic, keyed by subject
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish writes data with subject as the message key, so one subject keeps its order
func (p *KafkaPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(subject),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message for %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending writes
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
