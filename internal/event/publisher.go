// Package event provides event publishing abstractions.
//
// Services publish domain events (registrations, saved words, quiz answers)
// through Publisher without knowing where they end up. Only the logging
// publisher exists today; a broker-backed implementation would sit next to
// it and be selected in main.
package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/palabeo/palabeo/internal/domain"
)

// Publisher is the interface for publishing domain events.
// Implementations can be swapped without changing business logic.
type Publisher interface {
	// Publish sends an event to the message broker.
	// Implementations should handle retries and error logging internally.
	Publish(ctx context.Context, event domain.Event) error

	// PublishBatch sends multiple events. Some brokers optimize for batching.
	PublishBatch(ctx context.Context, events []domain.Event) error

	// Close cleanly shuts down the publisher.
	Close() error
}

// LoggingPublisher implements Publisher by logging events.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, _ := json.Marshal(event.Data)
	p.logger.InfoContext(ctx, "event published",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("user_id", event.UserID),
		slog.String("data", string(data)),
	)
	return nil
}

func (p *LoggingPublisher) PublishBatch(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *LoggingPublisher) Close() error {
	return nil
}

// NoopPublisher is a no-op implementation for when event publishing is disabled.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(ctx context.Context, event domain.Event) error {
	return nil
}

func (p *NoopPublisher) PublishBatch(ctx context.Context, events []domain.Event) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}

// RecordingPublisher keeps every event in memory. Tests use it to assert
// what a service published.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) PublishBatch(ctx context.Context, events []domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *RecordingPublisher) Close() error {
	return nil
}

// Types returns the type of every recorded event in publish order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
