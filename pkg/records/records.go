// Package records defines the generic CRM record store the automation engine reads and writes.
//
// The store is a keyed map of named entity types. The engine never assumes a schema for
// a record beyond its "id" field.
package records

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Entity types known to the record store.
const (
	EntityOpportunity        = "Opportunity"
	EntityAccount            = "Account"
	EntityContact            = "Contact"
	EntityLead               = "Lead"
	EntityQuote              = "Quote"
	EntityOrder              = "Order"
	EntityWorkOrder          = "WorkOrder"
	EntityInvoice            = "Invoice"
	EntityCommission         = "Commission"
	EntityTask               = "Task"
	EntityServiceAppointment = "ServiceAppointment"
	EntityAgreement          = "Agreement"
)

// EntityTypes lists every entity type the store accepts.
var EntityTypes = []string{
	EntityOpportunity,
	EntityAccount,
	EntityContact,
	EntityLead,
	EntityQuote,
	EntityOrder,
	EntityWorkOrder,
	EntityInvoice,
	EntityCommission,
	EntityTask,
	EntityServiceAppointment,
	EntityAgreement,
}

// IDField is the primary key field of every record.
const IDField = "id"

var (
	// ErrUnknownEntityType is a configuration error: the entity type is not part of the store.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrRecordNotFound indicates no record exists for the entity type and id.
	ErrRecordNotFound = errors.New("record not found")
)

// Store reads and writes CRM records.
type Store interface {
	Read(ctx context.Context, entityType, id string) (map[string]any, error)
	// Update merges patch into the record and returns the record as it was before the update.
	Update(ctx context.Context, entityType, id string, patch map[string]any) (map[string]any, error)
	// Create stores a new record, assigning an id when data carries none, and returns it.
	Create(ctx context.Context, entityType string, data map[string]any) (map[string]any, error)
}

// IsKnownEntityType reports whether entityType is served by the store.
func IsKnownEntityType(entityType string) bool {
	return slices.Contains(EntityTypes, entityType)
}

// ValidateEntityType returns ErrUnknownEntityType for unsupported entity types.
func ValidateEntityType(entityType string) error {
	if !IsKnownEntityType(entityType) {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}

	return nil
}

// IsUnknownEntityType checks if an error indicates an unsupported entity type.
func IsUnknownEntityType(err error) bool {
	return errors.Is(err, ErrUnknownEntityType)
}

// IsRecordNotFound checks if an error indicates a missing record.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// RecordID returns the string id of a record snapshot, or "" when absent.
func RecordID(record map[string]any) string {
	switch id := record[IDField].(type) {
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
