package events

import (
	"context"
	"fmt"

	"github.com/stoklog/stoklog-backend/pkg/logger"
	"github.com/stoklog/stoklog-backend/pkg/messaging"
)

// Digest is a fully rendered message for the mail collaborator
type Digest struct {
	TenantID   int64
	Recipients []string
	Subject    string
	Body       string
	AlertIDs   []int64
}

// DigestSender hands a digest to the mail collaborator over RabbitMQ.
// Unlike domain events, a failed hand-off is returned to the caller.
type DigestSender struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewDigestSender declares the notification exchange and returns a sender
func NewDigestSender(rmq *messaging.RabbitMQ, log *logger.Logger) (*DigestSender, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeNotificationEvents, "alert-scheduler", log)
	if err != nil {
		return nil, err
	}
	return NewDigestSenderWithPublisher(publisher, log), nil
}

// NewDigestSenderWithPublisher wraps any EventPublisher
func NewDigestSenderWithPublisher(publisher messaging.EventPublisher, log *logger.Logger) *DigestSender {
	return &DigestSender{publisher: publisher, logger: log}
}

// Send publishes notification.digest.requested
func (s *DigestSender) Send(ctx context.Context, d Digest) error {
	if len(d.Recipients) == 0 {
		return fmt.Errorf("tenant %d has no notification recipients", d.TenantID)
	}

	data := messaging.DigestRequestedEvent{
		TenantID:   d.TenantID,
		Recipients: d.Recipients,
		Subject:    d.Subject,
		Body:       d.Body,
		AlertIDs:   d.AlertIDs,
	}
	if err := s.publisher.Publish(ctx, messaging.EventDigestRequested, data); err != nil {
		return fmt.Errorf("failed to hand off digest for tenant %d: %w", d.TenantID, err)
	}

	s.logger.Info().
		Int64("tenant_id", d.TenantID).
		Int("recipients", len(d.Recipients)).
		Int("alerts", len(d.AlertIDs)).
		Msg("digest handed off")
	return nil
}
