// Package postgresql stores CRM records as JSONB documents keyed by entity type and id.
//
// The crm_records table is created by the migrations of pkg/persistence/postgresql.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/pandacrm/automation/pkg/records"
)

var _ records.Store = (*Store)(nil)

// Store implements records.Store on PostgreSQL. Updates merge the patch into the stored
// document without version checks, so concurrent writers to one field race and the last
// commit wins.
type Store struct {
	db *sql.DB
}

// NewStore creates a record store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Read(ctx context.Context, entityType, id string) (map[string]any, error) {
	err := records.ValidateEntityType(entityType)
	if err != nil {
		return nil, err
	}

	return s.read(ctx, s.db.QueryRowContext(ctx,
		"SELECT data FROM crm_records WHERE entity_type = $1 AND id = $2", entityType, id), entityType, id)
}

func (s *Store) read(_ context.Context, row *sql.Row, entityType, id string) (map[string]any, error) {
	var data []byte

	err := row.Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", records.ErrRecordNotFound, entityType, id)
		}

		return nil, fmt.Errorf("failed to read %s %s: %w", entityType, id, err)
	}

	var record map[string]any

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", entityType, id, err)
	}

	return record, nil
}

// Update merges patch into the stored record and returns the record as it was before.
func (s *Store) Update(ctx context.Context, entityType, id string, patch map[string]any) (map[string]any, error) {
	err := records.ValidateEntityType(entityType)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	before, err := s.read(ctx, tx.QueryRowContext(ctx,
		"SELECT data FROM crm_records WHERE entity_type = $1 AND id = $2", entityType, id), entityType, id)
	if err != nil {
		return nil, err
	}

	clean := maps.Clone(patch)
	delete(clean, records.IDField)

	data, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE crm_records SET data = data || $3::jsonb, updated_at = NOW() WHERE entity_type = $1 AND id = $2",
		entityType, id, data)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", entityType, id, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return before, nil
}

// Create inserts a record, assigning a UUIDv7 id when data has none.
func (s *Store) Create(ctx context.Context, entityType string, data map[string]any) (map[string]any, error) {
	err := records.ValidateEntityType(entityType)
	if err != nil {
		return nil, err
	}

	record := maps.Clone(data)
	if record == nil {
		record = make(map[string]any)
	}

	if records.RecordID(record) == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate record ID: %w", err)
		}

		record[records.IDField] = id.String()
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	id := records.RecordID(record)

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO crm_records (entity_type, id, data) VALUES ($1, $2, $3)", entityType, id, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %s: %w", entityType, id, err)
	}

	return record, nil
}
