package file

import (
	"context"
	"errors"
	"os"
	"slices"
	"time"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
)

// DeferredActionRepository stores one JSON file per deferred action.
type DeferredActionRepository struct {
	p *Persistence
}

func (dr *DeferredActionRepository) Save(_ context.Context, action *models.DeferredAction) error {
	dr.p.mu.Lock()
	defer dr.p.mu.Unlock()

	err := dr.p.writeJSON(deferredDir, action.ID, action)
	if err != nil {
		return persistence.NewRepositoryError("Save", "deferred action", action.ID, err)
	}

	return nil
}

func (dr *DeferredActionRepository) GetByID(_ context.Context, id string) (*models.DeferredAction, error) {
	dr.p.mu.RLock()
	defer dr.p.mu.RUnlock()

	return dr.get(id)
}

func (dr *DeferredActionRepository) get(id string) (*models.DeferredAction, error) {
	var action models.DeferredAction

	err := dr.p.readJSON(deferredDir, id, &action)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewRepositoryError("GetByID", "deferred action", id, persistence.ErrDeferredActionNotFound)
		}

		return nil, persistence.NewRepositoryError("GetByID", "deferred action", id, err)
	}

	return &action, nil
}

func (dr *DeferredActionRepository) Due(_ context.Context, now time.Time, limit int) ([]*models.DeferredAction, error) {
	dr.p.mu.RLock()
	defer dr.p.mu.RUnlock()

	all, err := readAll[models.DeferredAction](dr.p, deferredDir)
	if err != nil {
		return nil, err
	}

	due := slices.DeleteFunc(all, func(a *models.DeferredAction) bool {
		return a.Status != models.DeferredStatusPending || a.ScheduledFor.After(now)
	})

	slices.SortFunc(due, func(a, b *models.DeferredAction) int {
		return a.ScheduledFor.Compare(b.ScheduledFor)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (dr *DeferredActionRepository) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	dr.p.mu.Lock()
	defer dr.p.mu.Unlock()

	action, err := dr.get(id)
	if err != nil {
		return false, err
	}

	if action.Status != models.DeferredStatusPending {
		return false, nil
	}

	action.Status = models.DeferredStatusProcessing
	action.UpdatedAt = now

	err = dr.p.writeJSON(deferredDir, action.ID, action)
	if err != nil {
		return false, persistence.NewRepositoryError("Claim", "deferred action", id, err)
	}

	return true, nil
}

func (dr *DeferredActionRepository) ReleaseStale(_ context.Context, before time.Time, now time.Time) (int, error) {
	dr.p.mu.Lock()
	defer dr.p.mu.Unlock()

	all, err := readAll[models.DeferredAction](dr.p, deferredDir)
	if err != nil {
		return 0, err
	}

	released := 0

	for _, action := range all {
		if action.Status != models.DeferredStatusProcessing || !action.UpdatedAt.Before(before) {
			continue
		}

		action.Status = models.DeferredStatusPending
		action.UpdatedAt = now

		err := dr.p.writeJSON(deferredDir, action.ID, action)
		if err != nil {
			return released, persistence.NewRepositoryError("ReleaseStale", "deferred action", action.ID, err)
		}

		released++
	}

	return released, nil
}

func (dr *DeferredActionRepository) ListByExecution(_ context.Context, executionID string) ([]*models.DeferredAction, error) {
	dr.p.mu.RLock()
	defer dr.p.mu.RUnlock()

	all, err := readAll[models.DeferredAction](dr.p, deferredDir)
	if err != nil {
		return nil, err
	}

	actions := slices.DeleteFunc(all, func(a *models.DeferredAction) bool {
		return a.Payload.ExecutionID != executionID
	})

	slices.SortFunc(actions, func(a, b *models.DeferredAction) int {
		return a.ScheduledFor.Compare(b.ScheduledFor)
	})

	return actions, nil
}
