package messaging

import (
	"context"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
)

// ActionFactory creates messaging actions for one channel.
type ActionFactory struct {
	channel   protocol.Channel
	messenger protocol.Messenger
}

// NewSMSActionFactory creates the SEND_SMS factory.
func NewSMSActionFactory(messenger protocol.Messenger) *ActionFactory {
	return &ActionFactory{channel: protocol.ChannelSMS, messenger: messenger}
}

// NewEmailActionFactory creates the SEND_EMAIL factory.
func NewEmailActionFactory(messenger protocol.Messenger) *ActionFactory {
	return &ActionFactory{channel: protocol.ChannelEmail, messenger: messenger}
}

// Create creates a new Action from the given configuration.
func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(f.channel, f.messenger, config)
}

// ID returns the action type served by the factory.
func (f *ActionFactory) ID() string {
	if f.channel == protocol.ChannelEmail {
		return string(models.ActionTypeSendEmail)
	}

	return string(models.ActionTypeSendSMS)
}

// Name returns the name of the action.
func (f *ActionFactory) Name() string {
	if f.channel == protocol.ChannelEmail {
		return "Send Email"
	}

	return "Send SMS"
}

// Description returns a brief description of the action.
func (f *ActionFactory) Description() string {
	return "Sends a templated " + string(f.channel) + " message to a recipient taken from the triggering record."
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	properties := map[string]any{
		"template": map[string]any{
			"type":        "string",
			"description": "Message body. Supports {field} and {{field}} placeholders.",
			"examples":    []string{"Hi {{firstName}}, your appointment is confirmed."},
		},
		"templateId": map[string]any{
			"type":        "string",
			"description": "Identifier of a provider-side template, used instead of an inline template.",
		},
		"recipientField": map[string]any{
			"type":        "string",
			"description": "Dotted path of the recipient on the triggering record.",
			"default":     defaultRecipientField(f.channel),
		},
	}

	if f.channel == protocol.ChannelEmail {
		properties["subject"] = map[string]any{
			"type":        "string",
			"description": "Email subject. Supports placeholders.",
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"anyOf": []any{
			map[string]any{"required": []string{"template"}},
			map[string]any{"required": []string{"templateId"}},
		},
	}
}
