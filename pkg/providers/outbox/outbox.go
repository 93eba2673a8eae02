// Package outbox hands outbound messages and agreement notifications to the services that
// deliver them by publishing request events on the event bus.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pandacrm/automation/pkg/eventbus"
	"github.com/pandacrm/automation/pkg/events"
	"github.com/pandacrm/automation/pkg/protocol"
)

// ErrMissingRecipient is returned for messages without a destination.
var ErrMissingRecipient = errors.New("message has no recipient")

// Outbox implements protocol.Messenger and protocol.AgreementNotifier on top of a publisher.
type Outbox struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func New(publisher eventbus.EventPublisher, logger *slog.Logger) *Outbox {
	return &Outbox{
		publisher: publisher,
		logger:    logger.With("module", "outbox"),
	}
}

// Send publishes a message.requested event. The returned handle is the event id, which the
// messaging service reports delivery status against.
func (o *Outbox) Send(ctx context.Context, message protocol.Message) (string, error) {
	if message.To == "" {
		return "", ErrMissingRecipient
	}

	event := events.MessageRequested{
		BaseEvent: events.NewBaseEvent(events.MessageRequestedEvent, ""),
		Message:   message,
	}

	key := message.RecordID
	if key == "" {
		key = event.ID
	}

	err := o.publisher.Publish(ctx, key, event)
	if err != nil {
		return "", fmt.Errorf("failed to publish %s message: %w", message.Channel, err)
	}

	o.logger.DebugContext(ctx, "Message requested", "event_id", event.ID, "channel", message.Channel)

	return event.ID, nil
}

func (o *Outbox) NotifyAgreementSent(ctx context.Context, notification protocol.AgreementNotification) error {
	event := events.AgreementSent{
		BaseEvent:    events.NewBaseEvent(events.AgreementSentEvent, ""),
		Notification: notification,
	}

	err := o.publisher.Publish(ctx, notification.AgreementID, event)
	if err != nil {
		return fmt.Errorf("failed to publish agreement notification: %w", err)
	}

	o.logger.DebugContext(ctx, "Agreement notification requested", "agreement_id", notification.AgreementID)

	return nil
}
