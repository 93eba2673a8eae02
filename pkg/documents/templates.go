// Package documents resolves the merge templates agreements are generated from.
package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// defaultBodies is the payload stored when a document type has no default template yet.
var defaultBodies = map[models.DocumentType]string{
	models.DocumentTypeQuote: "Quote {{name}}\n\nPrepared for {{recipientName}}.\n" +
		"Total: {{amount}}\n\nSign below to accept this quote.",
	models.DocumentTypeInvoice: "Invoice {{name}}\n\nBilled to {{recipientName}}.\n" +
		"Amount due: {{amount}}\n\nSign below to acknowledge this invoice.",
	models.DocumentTypeWorkOrder: "Work order {{name}}\n\nCustomer: {{recipientName}}.\n" +
		"Scope: {{description}}\n\nSign below to authorize the work.",
	models.DocumentTypeContract: "Contract {{name}}\n\nBetween the company and {{recipientName}}.\n" +
		"Terms: {{description}}\n\nSign below to enter into this contract.",
}

// DefaultBody returns the built-in template body for a document type.
func DefaultBody(documentType models.DocumentType) string {
	return defaultBodies[documentType]
}

// Service looks up document templates, creating the default one on first use.
type Service struct {
	repo  persistence.DocumentTemplateRepository
	clock clock.Clock
}

// NewService creates a template service on the given repository.
func NewService(repo persistence.DocumentTemplateRepository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}

	return &Service{repo: repo, clock: clk}
}

// GetOrCreateDefault returns the default template of a document type. When none exists, one
// is created from DefaultBody. A concurrent creator winning the race is tolerated by
// re-reading the stored default.
func (s *Service) GetOrCreateDefault(ctx context.Context, documentType models.DocumentType) (*models.DocumentTemplate, error) {
	if !documentType.IsValid() {
		return nil, fmt.Errorf("unsupported document type %q", documentType)
	}

	template, err := s.repo.GetDefault(ctx, documentType)
	if err == nil {
		return template, nil
	}

	if !persistence.IsDocumentTemplateNotFound(err) {
		return nil, fmt.Errorf("failed to load default %s template: %w", documentType, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate template ID: %w", err)
	}

	template = &models.DocumentTemplate{
		ID:           id.String(),
		DocumentType: documentType,
		Name:         "Default " + strings.ToLower(string(documentType)) + " template",
		Body:         DefaultBody(documentType),
		IsDefault:    true,
		CreatedAt:    s.clock.Now().UTC(),
	}

	err = s.repo.Save(ctx, template)
	if err != nil {
		existing, getErr := s.repo.GetDefault(ctx, documentType)
		if getErr == nil {
			return existing, nil
		}

		return nil, fmt.Errorf("failed to create default %s template: %w", documentType, err)
	}

	return template, nil
}
