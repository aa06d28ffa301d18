// Package forwarders implements optional downstream delivery targets
// for dequeued rows: Kafka and Redis. Both are registered as ordinary
// dispatch.Handler/OnAny subscribers by the host, not wired in by
// default.
//
// Grounded on the teacher's triggers/kafka.go and triggers/redis.go,
// which build Kafka/Redis producers to re-publish workflow events;
// horton forwards CDC rows through the same clients instead.
package forwarders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/queue"
)

// KafkaForwarder writes every row it receives to a configured topic,
// keyed by table name.
type KafkaForwarder struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// KafkaConfig configures NewKafkaForwarder.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// NewKafkaForwarder constructs a forwarder writing to cfg.Topic.
func NewKafkaForwarder(cfg KafkaConfig, logger *zap.Logger) *KafkaForwarder {
	return &KafkaForwarder{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Handler returns a dispatch.Handler suitable for OnAny/On.
func (f *KafkaForwarder) Handler() dispatch.Handler {
	return func(ctx context.Context, row queue.Row) error {
		value, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("forwarders: marshal row: %w", err)
		}

		msg := kafka.Message{
			Key:   []byte(row.TableName),
			Value: value,
			Headers: []kafka.Header{
				{Key: "table", Value: []byte(row.TableName)},
				{Key: "operation", Value: []byte(row.Operation)},
			},
		}

		if err := f.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("forwarders: kafka write: %w", err)
		}
		return nil
	}
}

// Close releases the underlying Kafka writer.
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
