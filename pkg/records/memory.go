package records

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Concurrent updates of the same record are
// last-writer-wins, matching the production store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]map[string]any)}
}

// Read returns a copy of the record.
func (s *MemoryStore) Read(_ context.Context, entityType, id string) (map[string]any, error) {
	err := ValidateEntityType(entityType)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[entityType][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, entityType, id)
	}

	return maps.Clone(record), nil
}

// Update merges patch into the record and returns the previous version.
func (s *MemoryStore) Update(_ context.Context, entityType, id string, patch map[string]any) (map[string]any, error) {
	err := ValidateEntityType(entityType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[entityType][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, entityType, id)
	}

	before := maps.Clone(record)

	for key, value := range patch {
		if key == IDField {
			continue
		}

		record[key] = value
	}

	return before, nil
}

// Create stores a copy of data.
func (s *MemoryStore) Create(_ context.Context, entityType string, data map[string]any) (map[string]any, error) {
	err := ValidateEntityType(entityType)
	if err != nil {
		return nil, err
	}

	record := maps.Clone(data)
	if record == nil {
		record = make(map[string]any)
	}

	if RecordID(record) == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate record ID: %w", err)
		}

		record[IDField] = id.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[entityType] == nil {
		s.records[entityType] = make(map[string]map[string]any)
	}

	s.records[entityType][RecordID(record)] = record

	return maps.Clone(record), nil
}

// List returns copies of every record of an entity type.
func (s *MemoryStore) List(entityType string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, 0, len(s.records[entityType]))
	for _, record := range s.records[entityType] {
		out = append(out, maps.Clone(record))
	}

	return out
}
