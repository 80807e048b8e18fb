// Package memory contains an in-process publisher used when Pub/Sub is not configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
	limit    int
	seq      int
	err      error
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// New returns a memory Publisher that keeps every message.
func New() *Publisher {
	return &Publisher{}
}

// NewBounded returns a Publisher that keeps only the most recent limit
// messages. Use it for long-running processes.
func NewBounded(limit int) *Publisher {
	if limit < 1 {
		limit = 1
	}
	return &Publisher{limit: limit}
}

// FailWith makes subsequent publishes return err. Pass nil to recover.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the message and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if p.limit > 0 && len(p.messages) >= p.limit {
		n := copy(p.messages, p.messages[len(p.messages)-p.limit+1:])
		clear(p.messages[n:])
		p.messages = p.messages[:n]
	}
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	p.seq++
	return fmt.Sprintf("memory-%d", p.seq), nil
}

// Messages returns the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// ManifestEvents returns the recorded payloads that are manifest events.
func (p *Publisher) ManifestEvents() []llmstxt.ManifestEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var events []llmstxt.ManifestEvent
	for _, msg := range p.messages {
		if event, ok := msg.Payload.(llmstxt.ManifestEvent); ok {
			events = append(events, event)
		}
	}
	return events
}
