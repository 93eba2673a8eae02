// Package messaging provides the SEND_SMS and SEND_EMAIL actions.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/template"
)

var (
	// ErrMissingTemplate is returned when neither template nor templateId is configured.
	ErrMissingTemplate = errors.New("messaging action requires 'template' or 'templateId'")

	// ErrMissingRecipient is returned when the triggering record has no recipient.
	ErrMissingRecipient = errors.New("recipient is missing on the triggering record")
)

func defaultRecipientField(channel protocol.Channel) string {
	if channel == protocol.ChannelEmail {
		return "email"
	}

	return "phone"
}

// Action sends one message through the messenger.
type Action struct {
	Channel        protocol.Channel
	Template       string
	TemplateID     string
	Subject        string
	RecipientField string

	messenger protocol.Messenger
}

// NewAction creates a messaging action from configuration.
func NewAction(channel protocol.Channel, messenger protocol.Messenger, config map[string]any) (*Action, error) {
	body, _ := config["template"].(string)
	templateID, _ := config["templateId"].(string)

	if body == "" && templateID == "" {
		return nil, ErrMissingTemplate
	}

	subject, _ := config["subject"].(string)

	recipientField, _ := config["recipientField"].(string)
	if recipientField == "" {
		recipientField = defaultRecipientField(channel)
	}

	return &Action{
		Channel:        channel,
		Template:       body,
		TemplateID:     templateID,
		Subject:        subject,
		RecipientField: recipientField,
		messenger:      messenger,
	}, nil
}

// Execute renders the message against the record and hands it to the messenger.
func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "messaging_action", "channel", a.Channel)

	recipient := template.Stringify(template.Resolve(actx.Record, a.RecipientField))
	if recipient == "" {
		return nil, fmt.Errorf("%w: field '%s'", ErrMissingRecipient, a.RecipientField)
	}

	message := protocol.Message{
		Channel:    a.Channel,
		To:         recipient,
		Subject:    template.Interpolate(a.Subject, actx.Record),
		Body:       template.Interpolate(a.Template, actx.Record),
		TemplateID: a.TemplateID,
		RecordType: actx.TriggerObject,
		RecordID:   actx.RecordID(),
	}

	messageID, err := a.messenger.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", a.Channel, err)
	}

	logger.InfoContext(ctx, "Message sent", "message_id", messageID)

	return map[string]any{
		"sent":      true,
		"messageId": messageID,
		"channel":   string(a.Channel),
		"recipient": recipient,
	}, nil
}
