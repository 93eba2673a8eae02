package models

import "time"

// DocumentType is the kind of document an agreement is generated from.
type DocumentType string

const (
	DocumentTypeQuote     DocumentType = "quote"
	DocumentTypeInvoice   DocumentType = "invoice"
	DocumentTypeWorkOrder DocumentType = "workorder"
	DocumentTypeContract  DocumentType = "contract"
)

// IsValid reports whether t is a supported document type.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeQuote, DocumentTypeInvoice, DocumentTypeWorkOrder, DocumentTypeContract:
		return true
	default:
		return false
	}
}

// DocumentTemplate is the merge template an agreement is rendered from.
type DocumentTemplate struct {
	ID           string       `json:"id"`
	DocumentType DocumentType `json:"document_type"`
	Name         string       `json:"name"`
	Body         string       `json:"body"`
	IsDefault    bool         `json:"is_default"`
	CreatedAt    time.Time    `json:"created_at"`
}
