package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// DocumentTemplateRepository handles document template database operations.
type DocumentTemplateRepository struct {
	db *sql.DB
}

func (r *DocumentTemplateRepository) GetDefault(ctx context.Context, documentType models.DocumentType) (*models.DocumentTemplate, error) {
	var (
		template models.DocumentTemplate
		docType  string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, document_type, name, body, is_default, created_at
		FROM document_templates
		WHERE document_type = $1 AND is_default
	`, string(documentType)).Scan(
		&template.ID, &docType, &template.Name, &template.Body, &template.IsDefault, &template.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRepositoryError("GetDefault", "document template", string(documentType), persistence.ErrDocumentTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan document template: %w", err)
	}

	template.DocumentType = models.DocumentType(docType)

	return &template, nil
}

func (r *DocumentTemplateRepository) Save(ctx context.Context, template *models.DocumentTemplate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_templates (id, document_type, name, body, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			body = EXCLUDED.body,
			is_default = EXCLUDED.is_default
	`,
		template.ID, string(template.DocumentType), template.Name, template.Body, template.IsDefault, template.CreatedAt,
	)
	if err != nil {
		return persistence.NewRepositoryError("Save", "document template", template.ID, err)
	}

	return nil
}
