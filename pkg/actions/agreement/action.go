// Package agreement provides the SEND_AGREEMENT action.
package agreement

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/pandacrm/automation/pkg/actions"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
	"github.com/pandacrm/automation/pkg/template"
)

const (
	defaultNameField     = "name"
	defaultEmailField    = "email"
	defaultPhoneField    = "phone"
	defaultExpiresInDays = 30
	tokenBytes           = 32

	// StatusDraft is the status of a created, unsent agreement.
	StatusDraft = "DRAFT"
	// StatusSent is the status of an agreement handed to the signing automation.
	StatusSent = "SENT"
)

// TemplateSource resolves the default template of a document type, creating it when absent.
type TemplateSource interface {
	GetOrCreateDefault(ctx context.Context, documentType models.DocumentType) (*models.DocumentTemplate, error)
}

// Action creates an Agreement record awaiting signature.
type Action struct {
	DocumentType        models.DocumentType
	RecipientNameField  string
	RecipientEmailField string
	RecipientPhoneField string
	SendViaSMS          bool
	SendImmediately     bool
	ExpiresInDays       int

	deps Dependencies
}

// NewAction creates a SEND_AGREEMENT action from configuration.
func NewAction(config map[string]any, deps Dependencies) (*Action, error) {
	documentType, err := actions.RequireString(config, "documentType")
	if err != nil {
		return nil, err
	}

	if !models.DocumentType(documentType).IsValid() {
		return nil, fmt.Errorf("unsupported document type %q", documentType)
	}

	return &Action{
		DocumentType:        models.DocumentType(documentType),
		RecipientNameField:  actions.String(config, "recipientNameField", defaultNameField),
		RecipientEmailField: actions.String(config, "recipientEmailField", defaultEmailField),
		RecipientPhoneField: actions.String(config, "recipientPhoneField", defaultPhoneField),
		SendViaSMS:          actions.Bool(config, "sendViaSms", false),
		SendImmediately:     actions.Bool(config, "sendImmediately", false),
		ExpiresInDays:       max(actions.Int(config, "expiresInDays", defaultExpiresInDays), 1),
		deps:                deps,
	}, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "agreement_action")

	token, err := signingToken()
	if err != nil {
		return nil, err
	}

	documentTemplate, err := a.deps.Templates.GetOrCreateDefault(ctx, a.DocumentType)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s template: %w", a.DocumentType, err)
	}

	recipientName := field(actx.Record, a.RecipientNameField)
	recipientEmail := field(actx.Record, a.RecipientEmailField)
	recipientPhone := field(actx.Record, a.RecipientPhoneField)
	signingURL := strings.TrimRight(a.deps.SigningBaseURL, "/") + "/sign/" + token
	now := a.deps.Clock.Now().UTC()

	mergeData := maps.Clone(actx.Record)
	if mergeData == nil {
		mergeData = map[string]any{}
	}

	mergeData["recipientName"] = recipientName

	agreement := map[string]any{
		"documentType":        string(a.DocumentType),
		"templateId":          documentTemplate.ID,
		"content":             template.Interpolate(documentTemplate.Body, mergeData),
		"relatedToType":       actx.TriggerObject,
		"relatedToId":         actx.RecordID(),
		"status":              StatusDraft,
		"signingToken":        token,
		"signingUrl":          signingURL,
		"recipientName":       recipientName,
		"recipientEmail":      recipientEmail,
		"recipientPhone":      recipientPhone,
		"expiresAt":           now.AddDate(0, 0, a.ExpiresInDays).Format(time.RFC3339),
		"createdById":         actx.ActorID,
		"workflowExecutionId": actx.ExecutionID,
	}

	created, err := a.deps.Store.Create(ctx, records.EntityAgreement, agreement)
	if err != nil {
		return nil, fmt.Errorf("failed to create agreement: %w", err)
	}

	agreementID := records.RecordID(created)

	a.deps.Auditor.Record(ctx, models.AuditLogEntry{
		EntityType: records.EntityAgreement,
		EntityID:   agreementID,
		Action:     models.AuditActionCreate,
		NewValues:  created,
		ActorID:    actx.ActorID,
	})

	if !a.SendImmediately {
		logger.InfoContext(ctx, "Agreement created", "agreement_id", agreementID)

		return map[string]any{"sent": false, "agreementId": agreementID, "signingUrl": signingURL}, nil
	}

	_, err = a.deps.Store.Update(ctx, records.EntityAgreement, agreementID, map[string]any{
		"status": StatusSent,
		"sentAt": now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark agreement %s as sent: %w", agreementID, err)
	}

	a.deps.Auditor.Record(ctx, models.AuditLogEntry{
		EntityType: records.EntityAgreement,
		EntityID:   agreementID,
		Action:     models.AuditActionStatusChange,
		OldValues:  map[string]any{"status": StatusDraft},
		NewValues:  map[string]any{"status": StatusSent},
		ActorID:    actx.ActorID,
	})

	if a.deps.Notifier != nil {
		err = a.deps.Notifier.NotifyAgreementSent(ctx, protocol.AgreementNotification{
			AgreementID:    agreementID,
			DocumentType:   string(a.DocumentType),
			SigningURL:     signingURL,
			RecipientName:  recipientName,
			RecipientEmail: recipientEmail,
			RecipientPhone: recipientPhone,
			SendViaSMS:     a.SendViaSMS,
		})
		if err != nil {
			logger.WarnContext(ctx, "Agreement notification failed", "agreement_id", agreementID, "error", err)
		}
	}

	logger.InfoContext(ctx, "Agreement sent", "agreement_id", agreementID)

	return map[string]any{"sent": true, "agreementId": agreementID, "signingUrl": signingURL}, nil
}

func field(record map[string]any, path string) string {
	return template.Stringify(template.Resolve(record, path))
}

func signingToken() (string, error) {
	buf := make([]byte, tokenBytes)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("failed to generate signing token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
