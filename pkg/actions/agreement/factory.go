package agreement

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
)

// Dependencies are the collaborators a SEND_AGREEMENT action works with.
type Dependencies struct {
	Store          records.Store
	Auditor        protocol.Auditor
	Templates      TemplateSource
	Notifier       protocol.AgreementNotifier
	Clock          clock.Clock
	SigningBaseURL string
}

// ActionFactory creates SEND_AGREEMENT actions.
type ActionFactory struct {
	deps Dependencies
}

// NewActionFactory creates a new ActionFactory.
func NewActionFactory(deps Dependencies) *ActionFactory {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	return &ActionFactory{deps: deps}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.deps)
}

func (f *ActionFactory) ID() string {
	return string(models.ActionTypeSendAgreement)
}

func (f *ActionFactory) Name() string {
	return "Send Agreement"
}

func (f *ActionFactory) Description() string {
	return "Generates an agreement for signature from the default document template and optionally sends it."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documentType": map[string]any{
				"type": "string",
				"enum": []string{
					string(models.DocumentTypeQuote),
					string(models.DocumentTypeInvoice),
					string(models.DocumentTypeWorkOrder),
					string(models.DocumentTypeContract),
				},
			},
			"recipientNameField": map[string]any{
				"type":    "string",
				"default": defaultNameField,
			},
			"recipientEmailField": map[string]any{
				"type":    "string",
				"default": defaultEmailField,
			},
			"recipientPhoneField": map[string]any{
				"type":    "string",
				"default": defaultPhoneField,
			},
			"sendViaSms": map[string]any{
				"type":    "boolean",
				"default": false,
			},
			"sendImmediately": map[string]any{
				"type":    "boolean",
				"default": false,
			},
			"expiresInDays": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": defaultExpiresInDays,
			},
		},
		"required": []string{"documentType"},
	}
}
