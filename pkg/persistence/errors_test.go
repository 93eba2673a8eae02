package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("repository error unwraps to sentinel", func(t *testing.T) {
		err := persistence.NewRepositoryError("GetByID", "workflow", "wf-123", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrWorkflowNotFound))
		assert.False(t, persistence.IsExecutionNotFound(err))
		assert.True(t, persistence.IsNotFound(err))
	})

	t.Run("repository error contains context", func(t *testing.T) {
		err := persistence.NewRepositoryError("Save", "execution", "exec-1", persistence.ErrInvalidID)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "execution exec-1")
		assert.Contains(t, err.Error(), "invalid identifier")
	})

	t.Run("wrapped errors are detected", func(t *testing.T) {
		err := fmt.Errorf("loading template: %w", persistence.ErrDocumentTemplateNotFound)

		assert.True(t, persistence.IsDocumentTemplateNotFound(err))
		assert.True(t, persistence.IsNotFound(err))
		assert.False(t, persistence.IsNotFound(errors.New("boom")))
	})

	t.Run("deferred action not found", func(t *testing.T) {
		err := persistence.NewRepositoryError("Claim", "deferred action", "d-1", persistence.ErrDeferredActionNotFound)

		assert.True(t, persistence.IsDeferredActionNotFound(err))
	})
}
