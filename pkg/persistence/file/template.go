package file

import (
	"context"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// DocumentTemplateRepository stores one JSON file per document template.
type DocumentTemplateRepository struct {
	p *Persistence
}

func (tr *DocumentTemplateRepository) GetDefault(_ context.Context, documentType models.DocumentType) (*models.DocumentTemplate, error) {
	tr.p.mu.RLock()
	defer tr.p.mu.RUnlock()

	templates, err := readAll[models.DocumentTemplate](tr.p, templatesDir)
	if err != nil {
		return nil, err
	}

	for _, template := range templates {
		if template.DocumentType == documentType && template.IsDefault {
			return template, nil
		}
	}

	return nil, persistence.NewRepositoryError("GetDefault", "document template", string(documentType), persistence.ErrDocumentTemplateNotFound)
}

func (tr *DocumentTemplateRepository) Save(_ context.Context, template *models.DocumentTemplate) error {
	tr.p.mu.Lock()
	defer tr.p.mu.Unlock()

	err := tr.p.writeJSON(templatesDir, template.ID, template)
	if err != nil {
		return persistence.NewRepositoryError("Save", "document template", template.ID, err)
	}

	return nil
}
