package forwarders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/queue"
)

// RedisConfig configures NewRedisForwarder.
type RedisConfig struct {
	Address    string `yaml:"address" mapstructure:"address"`
	Password   string `yaml:"password" mapstructure:"password"`
	DB         int    `yaml:"db" mapstructure:"db"`
	StreamName string `yaml:"stream_name" mapstructure:"stream_name"` // defaults to "horton:rows"
}

// RedisForwarder publishes rows to a Redis pub/sub channel keyed by
// table name, and appends them to a single Redis stream.
type RedisForwarder struct {
	client     *redis.Client
	streamName string
	logger     *zap.Logger
}

// NewRedisForwarder constructs a forwarder bound to cfg.
func NewRedisForwarder(cfg RedisConfig, logger *zap.Logger) *RedisForwarder {
	streamName := cfg.StreamName
	if streamName == "" {
		streamName = "horton:rows"
	}

	return &RedisForwarder{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		streamName: streamName,
		logger:     logger,
	}
}

// Handler returns a dispatch.Handler that publishes to
// "horton:<table>" and appends to the configured stream.
func (f *RedisForwarder) Handler() dispatch.Handler {
	return func(ctx context.Context, row queue.Row) error {
		payload, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("forwarders: marshal row: %w", err)
		}

		channel := fmt.Sprintf("horton:%s", row.TableName)
		if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("forwarders: redis publish: %w", err)
		}

		err = f.client.XAdd(ctx, &redis.XAddArgs{
			Stream: f.streamName,
			Values: map[string]interface{}{
				"table":     row.TableName,
				"operation": string(row.Operation),
				"row":       string(payload),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("forwarders: redis xadd: %w", err)
		}

		return nil
	}
}

// Close releases the underlying Redis client.
func (f *RedisForwarder) Close() error {
	return f.client.Close()
}
