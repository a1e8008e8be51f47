// Package events publishes workflow domain events to the message broker.
package events

import (
	"context"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/messaging"
)

// Publisher publishes workflow events
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new workflow event publisher
func NewPublisher(publisher *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishTransitioned announces a committed workflow transition. The
// transition is already durable at this point, so a publish failure is
// logged rather than surfaced to the caller.
func (p *Publisher) PublishTransitioned(ctx context.Context, record *domain.TransitionRecord) {
	event := messaging.WorkflowTransitionedEvent{
		CertificateType: string(record.CertificateType),
		CertificateID:   record.CertificateID,
		ToState:         string(record.ToState),
		TransitionType:  string(record.TransitionType),
		PerformedBy:     record.PerformedBy,
		PerformedAt:     record.PerformedAt,
	}
	if record.FromState != nil {
		from := string(*record.FromState)
		event.FromState = &from
	}

	if err := p.publisher.Publish(ctx, messaging.EventWorkflowTransitioned, event); err != nil {
		p.logger.Error().Err(err).
			Str("certificate_type", event.CertificateType).
			Int64("certificate_id", event.CertificateID).
			Msg("failed to publish workflow transition event")
	}
}
