package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig represents Apache Kafka producer configuration
type KafkaConfig struct {
	Brokers      []string      // Kafka broker addresses
	BatchTimeout time.Duration // Batch timeout for producer (default: 10ms)
	WriteTimeout time.Duration // Per-write timeout (default: 2s)
}

// KafkaPublisher writes events to Kafka topics, one writer per topic
type KafkaPublisher struct {
	config  KafkaConfig
	writers map[string]*kafka.Writer
	mu      sync.Mutex
}

// newKafkaPublisher creates a Kafka publisher. Connections are made lazily.
func newKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Second
	}

	return &KafkaPublisher{
		config:  cfg,
		writers: make(map[string]*kafka.Writer),
	}, nil
}

// topicName maps a dotted subject to a Kafka topic
func topicName(subject string) string {
	return strings.ReplaceAll(subject, ".", "-")
}

// getOrCreateWriter returns existing writer or creates new one
func (p *KafkaPublisher) getOrCreateWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           p.config.BatchTimeout,
		WriteTimeout:           p.config.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = w
	return w
}

// Publish writes data to the subject's topic
func (p *KafkaPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	topic := topicName(subject)
	w := p.getOrCreateWriter(topic)

	if err := w.WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Close closes all writers
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []string
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", topic, err))
		}
		delete(p.writers, topic)
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close kafka writers: %s", strings.Join(errs, "; "))
	}
	return nil
}
