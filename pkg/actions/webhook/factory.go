package webhook

import (
	"context"
	"net/http"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
)

// ActionFactory creates CALL_WEBHOOK actions.
type ActionFactory struct {
	client *http.Client
}

// NewActionFactory creates a new ActionFactory. A nil client uses a fresh http.Client per call.
func NewActionFactory(client *http.Client) *ActionFactory {
	return &ActionFactory{client: client}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.client)
}

func (f *ActionFactory) ID() string {
	return string(models.ActionTypeCallWebhook)
}

func (f *ActionFactory) Name() string {
	return "Call Webhook"
}

func (f *ActionFactory) Description() string {
	return "Calls an external HTTP endpoint with data from the triggering record."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint URL. Supports placeholders.",
				"examples":    []string{"https://hooks.example.com/opportunities/{{id}}"},
			},
			"method": map[string]any{
				"type":    "string",
				"default": http.MethodPost,
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"bodyTemplate": map[string]any{
				"description": "Request body. Strings are sent as is, objects are JSON encoded. Placeholders are resolved in both.",
				"type":        []string{"string", "object"},
			},
			"timeoutSeconds": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": defaultTimeoutSeconds,
			},
		},
		"required": []string{"url"},
	}
}
