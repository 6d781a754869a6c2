package events

import (
	"fmt"
	"strings"

	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

// NewPublisher creates a Publisher based on configuration
// Default is a no-op if type is not specified
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	eventsType := utils.EventsType(strings.ToLower(cfg.Type))

	if eventsType == "" {
		eventsType = utils.EventsTypeNone
	}

	switch eventsType {
	case utils.EventsTypeNone:
		return NopPublisher{}, nil

	case utils.EventsTypeMemory:
		return NewMemoryPublisher(), nil

	case utils.EventsTypeNATS:
		return newNATSPublisher(cfg.URL, cfg.Password)

	case utils.EventsTypeRedis:
		return newRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.EventsTypeKafka:
		return newKafkaPublisher(KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			WriteTimeout: cfg.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported events type: %s (supported: none, memory, nats, redis, kafka)", eventsType)
	}
}
