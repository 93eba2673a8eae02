// Package file provides file-based persistence for workflow definitions and engine state.
//
// Every entity is one JSON document under a per-kind directory of the root. A single mutex
// serializes access so concurrent triggers within one process never interleave writes.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pandacrm/automation/pkg/persistence"
)

const (
	workflowsDir  = "workflows"
	executionsDir = "executions"
	deferredDir   = "deferred_actions"
	auditDir      = "audit_log"
	templatesDir  = "document_templates"
)

var _ persistence.Persistence = (*Persistence)(nil)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex

	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	deferredRepo  *DeferredActionRepository
	auditRepo     *AuditLogRepository
	templateRepo  *DocumentTemplateRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	p := &Persistence{root: strings.Replace(root, "file://", "", 1)}

	p.workflowRepo = &WorkflowRepository{p: p}
	p.executionRepo = &ExecutionRepository{p: p}
	p.deferredRepo = &DeferredActionRepository{p: p}
	p.auditRepo = &AuditLogRepository{p: p}
	p.templateRepo = &DocumentTemplateRepository{p: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) DeferredActionRepository() persistence.DeferredActionRepository {
	return fp.deferredRepo
}

func (fp *Persistence) AuditLogRepository() persistence.AuditLogRepository {
	return fp.auditRepo
}

func (fp *Persistence) DocumentTemplateRepository() persistence.DocumentTemplateRepository {
	return fp.templateRepo
}

// validateID rejects identifiers that would escape the storage directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q contains invalid characters", persistence.ErrInvalidID, id)
	}

	return nil
}

func (fp *Persistence) path(dir, id string) string {
	return filepath.Join(fp.root, dir, id+".json")
}

// writeJSON stores value as dir/id.json. Callers hold the write lock.
func (fp *Persistence) writeJSON(dir, id string, value any) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Join(fp.root, dir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	err = os.WriteFile(fp.path(dir, id), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	return nil
}

// readJSON loads dir/id.json into value. A missing file is reported as os.ErrNotExist.
func (fp *Persistence) readJSON(dir, id string, value any) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(fp.path(dir, id)) // #nosec G304 -- id is validated above
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return nil
}

func (fp *Persistence) remove(dir, id string) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	err = os.Remove(fp.path(dir, id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return nil
}

// readAll loads every JSON document of a directory. Unreadable files are skipped.
func readAll[T any](fp *Persistence, dir string) ([]*T, error) {
	entries, err := os.ReadDir(filepath.Join(fp.root, dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*T{}, nil
		}

		return nil, fmt.Errorf("failed to read %s directory: %w", dir, err)
	}

	items := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		var item T

		err := fp.readJSON(dir, strings.TrimSuffix(entry.Name(), ".json"), &item)
		if err != nil {
			continue
		}

		items = append(items, &item)
	}

	return items, nil
}
