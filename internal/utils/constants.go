package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// ShutdownTimeout bounds graceful shutdown of the HTTP server
const ShutdownTimeout = 10 * time.Second

// Event Publishing Timeouts
const (
	// EventPublishTimeout bounds a single synchronous publish
	EventPublishTimeout = 2 * time.Second

	// EventConnectTimeout bounds the initial broker connection
	EventConnectTimeout = 5 * time.Second
)

// =============================================================================
// Dashboard Defaults
// =============================================================================

const (
	// DefaultRankingSize is the number of groups shown in a ranking when top is unset
	DefaultRankingSize = 10

	// DefaultAnomalyLimit caps the anomalies returned when limit is unset
	DefaultAnomalyLimit = 100

	// MaxListSize is the largest top/limit a request may ask for
	MaxListSize = 10000
)

// =============================================================================
// Events Type Constants
// =============================================================================
// EventsType represents the type of event sink
type EventsType string

const (
	// EventsTypeNone disables event publishing (default)
	EventsTypeNone EventsType = "none"

	// EventsTypeMemory records events in memory (for testing)
	EventsTypeMemory EventsType = "memory"

	// EventsTypeNATS publishes on NATS core subjects
	EventsTypeNATS EventsType = "nats"

	// EventsTypeRedis appends to Redis Streams
	EventsTypeRedis EventsType = "redis"

	// EventsTypeKafka writes to Kafka topics
	EventsTypeKafka EventsType = "kafka"
)
