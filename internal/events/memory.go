package events

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPublisher records published events in memory
// This is useful for testing and development without external dependencies
type MemoryPublisher struct {
	messages map[string][][]byte
	closed   bool
	mu       sync.RWMutex
}

// NewMemoryPublisher creates a new in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		messages: make(map[string][][]byte),
	}
}

// Publish records a copy of data under subject
func (p *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publisher closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.messages[subject] = append(p.messages[subject], dataCopy)
	return nil
}

// Messages returns the events recorded for subject in publish order
func (p *MemoryPublisher) Messages(subject string) [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([][]byte, len(p.messages[subject]))
	copy(out, p.messages[subject])
	return out
}

// Count returns the number of events recorded for subject
func (p *MemoryPublisher) Count(subject string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages[subject])
}

// Close stops accepting events
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
