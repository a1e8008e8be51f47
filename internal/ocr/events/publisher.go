// Package events publishes OCR domain events to the message broker.
package events

import (
	"context"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/messaging"
)

// Publisher publishes OCR events
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new OCR event publisher
func NewPublisher(publisher *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishProcessed announces a completed extraction. The result is already
// returned to the caller; a publish failure is logged, not surfaced.
func (p *Publisher) PublishProcessed(ctx context.Context, result *domain.ExtractionResult) {
	event := messaging.DocumentProcessedEvent{
		Fingerprint:    result.Fingerprint,
		FileName:       result.FileName,
		FileSize:       result.FileSize,
		Cached:         result.Cached,
		ProcessingTime: result.ProcessingTime,
		PagesProcessed: result.PagesProcessed,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDocumentProcessed, event); err != nil {
		p.logger.Error().Err(err).
			Str("fingerprint", event.Fingerprint).
			Msg("failed to publish document processed event")
	}
}
