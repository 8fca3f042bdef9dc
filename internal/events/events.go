// Package events hands scheduling outcomes to downstream consumers
// (notifications, analytics) without blocking the request path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/spa-scheduler-api/pkg/jobs"
)

// Event types emitted by the engine.
const (
	TypeAssignmentConfirmed = "assignment.confirmed"
	TypeBookingCancelled    = "booking.cancelled"
	TypeAvailabilityReview  = "availability.reviewed"
)

// Event is the envelope delivered to publishers.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Actor       string          `json:"actor,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// New builds an event with a fresh id and the JSON-encoded payload.
func New(eventType, aggregateID, actor string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		Actor:       actor,
		OccurredAt:  time.Now().UTC(),
		Payload:     raw,
	}, nil
}

// Publisher delivers an event to its destination.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher queues events for asynchronous publishing.
type Dispatcher struct {
	queue  *jobs.Queue[Event]
	logger *zap.Logger
}

// NewDispatcher wires publisher behind a retrying worker queue.
func NewDispatcher(publisher Publisher, cfg jobs.QueueConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	queue := jobs.NewQueue("scheduling-events", func(ctx context.Context, job jobs.Job[Event]) error {
		return publisher.Publish(ctx, job.Payload)
	}, cfg)
	return &Dispatcher{queue: queue, logger: cfg.Logger}
}

// Start launches the publishing workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop flushes buffered events until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.queue.Stop(ctx)
}

// Emit enqueues an event. Delivery failures are logged, never returned,
// so a committed assignment is not undone by a slow broker.
func (d *Dispatcher) Emit(eventType, aggregateID, actor string, payload interface{}) {
	if d == nil {
		return
	}
	event, err := New(eventType, aggregateID, actor, payload)
	if err != nil {
		d.logger.Error("build event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := d.queue.TryEnqueue(jobs.Job[Event]{ID: event.ID, Payload: event}); err != nil {
		d.logger.Warn("event dropped", zap.String("type", eventType), zap.String("aggregate_id", aggregateID), zap.Error(err))
	}
}
