// Package events carries the after-commit domain events the lifecycle engine
// emits for external collaborators (notification dispatchers and the like).
// Publishing is fire-and-forget: the engine never awaits acknowledgment and a
// publisher failure never rolls back a committed transition.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// TransactionEvent describes one committed status transition.
type TransactionEvent struct {
	TransactionID   string                    `json:"transactionID"`
	ReferenceNumber string                    `json:"referenceNumber"`
	PreviousStatus  *domain.TransactionStatus `json:"previousStatus,omitempty"`
	NewStatus       domain.TransactionStatus  `json:"newStatus"`
	ActorID         *string                   `json:"actorID,omitempty"`
	Timestamp       time.Time                 `json:"timestamp"`
}

// Publisher delivers transaction events to an external collaborator.
// Implementations must tolerate fire-and-forget semantics.
type Publisher interface {
	Publish(ctx context.Context, event TransactionEvent)
}

// LogPublisher writes events to the structured log. It is the default
// publisher and doubles as the failure sink during local development.
type LogPublisher struct {
	Logger *slog.Logger
}

// NewLogPublisher creates a publisher backed by the given logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{Logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, event TransactionEvent) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		slog.String("transaction_id", event.TransactionID),
		slog.String("reference_number", event.ReferenceNumber),
		slog.String("new_status", string(event.NewStatus)),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.PreviousStatus != nil {
		attrs = append(attrs, slog.String("previous_status", string(*event.PreviousStatus)))
	}
	if event.ActorID != nil {
		attrs = append(attrs, slog.String("actor_id", *event.ActorID))
	}
	logger.Info("Transaction event", attrs...)
}
