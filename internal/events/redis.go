package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/enrollwatch/internal/utils"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379)
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "enrollwatch")
}

// RedisPublisher appends events to Redis Streams
type RedisPublisher struct {
	client *redis.Client
	config RedisConfig
}

// newRedisPublisher creates a Redis Streams publisher and checks the connection
func newRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Fallback to simple options
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), utils.EventConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "enrollwatch"
	}

	return &RedisPublisher{client: client, config: cfg}, nil
}

// streamName converts a subject to a Redis stream name
func (p *RedisPublisher) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", p.config.Stream, subject)
}

// Publish appends data to the subject's stream
func (p *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName(subject),
		Values: map[string]interface{}{"data": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.streamName(subject), err)
	}
	return nil
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
