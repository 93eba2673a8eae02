package file

import (
	"sync"
	"testing"
	"time"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(id, object string, event models.TriggerEvent, active bool) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:            id,
		Name:          "Workflow " + id,
		TriggerObject: object,
		TriggerEvent:  event,
		IsActive:      active,
		Actions: []models.ActionDefinition{
			{ID: id + "-a1", ActionOrder: 1, ActionType: models.ActionTypeCreateTask, Config: map[string]any{"subject": "x"}},
		},
	}
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence("file://" + t.TempDir())
	require.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence(t.TempDir() + "/missing")
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestWorkflowRepository_SaveGetDelete(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.WorkflowRepository()

	workflow := newWorkflow("wf-1", "Opportunity", models.TriggerEventFieldChange, true)
	require.NoError(t, repo.Save(t.Context(), workflow))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.Equal(t, "wf-1", workflow.Actions[0].WorkflowID)

	loaded, err := repo.GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "x", loaded.Actions[0].Config["subject"])

	require.NoError(t, repo.Delete(t.Context(), "wf-1"))

	_, err = repo.GetByID(t.Context(), "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_RejectsPathTraversal(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		err := repo.Save(t.Context(), &models.WorkflowDefinition{ID: id})
		assert.ErrorIs(t, err, persistence.ErrInvalidID, id)
	}
}

func TestWorkflowRepository_FindActive(t *testing.T) {
	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	require.NoError(t, repo.Save(t.Context(), newWorkflow("match", "Opportunity", models.TriggerEventUpdate, true)))
	require.NoError(t, repo.Save(t.Context(), newWorkflow("inactive", "Opportunity", models.TriggerEventUpdate, false)))
	require.NoError(t, repo.Save(t.Context(), newWorkflow("other-event", "Opportunity", models.TriggerEventCreate, true)))
	require.NoError(t, repo.Save(t.Context(), newWorkflow("other-object", "Lead", models.TriggerEventUpdate, true)))

	found, err := repo.FindActive(t.Context(), "Opportunity", models.TriggerEventUpdate)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "match", found[0].ID)

	all, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExecutionRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionRepository()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3"} {
		workflowID := "wf-1"
		if id == "e3" {
			workflowID = "wf-2"
		}

		require.NoError(t, repo.Save(t.Context(), &models.WorkflowExecution{
			ID:         id,
			WorkflowID: workflowID,
			Status:     models.ExecutionStatusRunning,
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
		}))
	}

	execution, err := repo.GetByID(t.Context(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)

	execution.Status = models.ExecutionStatusCompleted
	execution.Result = []models.ActionOutcome{{ActionID: "a1", ActionType: models.ActionTypeCreateTask, Status: models.OutcomeCompleted}}
	require.NoError(t, repo.Save(t.Context(), execution))

	execution, err = repo.GetByID(t.Context(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, execution.Result, 1)

	list, err := repo.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e2", list[0].ID, "newest first")

	_, err = repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestDeferredActionRepository_DueAndClaim(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DeferredActionRepository()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	rows := []*models.DeferredAction{
		{ID: "late", ScheduledFor: now.Add(-time.Minute), Status: models.DeferredStatusPending, Payload: models.DeferredPayload{ExecutionID: "x1"}},
		{ID: "early", ScheduledFor: now.Add(-time.Hour), Status: models.DeferredStatusPending, Payload: models.DeferredPayload{ExecutionID: "x1"}},
		{ID: "future", ScheduledFor: now.Add(time.Hour), Status: models.DeferredStatusPending, Payload: models.DeferredPayload{ExecutionID: "x2"}},
		{ID: "done", ScheduledFor: now.Add(-time.Hour), Status: models.DeferredStatusCompleted},
	}
	for _, row := range rows {
		require.NoError(t, repo.Save(t.Context(), row))
	}

	due, err := repo.Due(t.Context(), now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].ID)
	assert.Equal(t, "late", due[1].ID)

	limited, err := repo.Due(t.Context(), now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	claimed, err := repo.Claim(t.Context(), "early", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(t.Context(), "early", now)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim loses")

	row, err := repo.GetByID(t.Context(), "early")
	require.NoError(t, err)
	assert.Equal(t, models.DeferredStatusProcessing, row.Status)

	byExecution, err := repo.ListByExecution(t.Context(), "x1")
	require.NoError(t, err)
	assert.Len(t, byExecution, 2)

	_, err = repo.Claim(t.Context(), "missing", now)
	assert.True(t, persistence.IsDeferredActionNotFound(err))
}

func TestDeferredActionRepository_ReleaseStale(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DeferredActionRepository()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, row := range []*models.DeferredAction{
		{ID: "abandoned", ScheduledFor: now.Add(-time.Hour), Status: models.DeferredStatusProcessing, UpdatedAt: now.Add(-time.Hour)},
		{ID: "running", ScheduledFor: now.Add(-time.Hour), Status: models.DeferredStatusProcessing, UpdatedAt: now.Add(-time.Minute)},
		{ID: "finished", ScheduledFor: now.Add(-time.Hour), Status: models.DeferredStatusCompleted, UpdatedAt: now.Add(-time.Hour)},
	} {
		require.NoError(t, repo.Save(t.Context(), row))
	}

	released, err := repo.ReleaseStale(t.Context(), now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	due, err := repo.Due(t.Context(), now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "abandoned", due[0].ID)
	assert.True(t, now.Equal(due[0].UpdatedAt))

	claimed, err := repo.Claim(t.Context(), "abandoned", now)
	require.NoError(t, err)
	assert.True(t, claimed, "released rows can be claimed again")

	running, err := repo.GetByID(t.Context(), "running")
	require.NoError(t, err)
	assert.Equal(t, models.DeferredStatusProcessing, running.Status)
}

func TestDeferredActionRepository_ConcurrentClaim(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DeferredActionRepository()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(t.Context(), &models.DeferredAction{ID: "d1", ScheduledFor: now, Status: models.DeferredStatusPending}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, err := repo.Claim(t.Context(), "d1", now)
			assert.NoError(t, err)

			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestAuditLogRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).AuditLogRepository()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(t.Context(), &models.AuditLogEntry{ID: "a2", EntityType: "Opportunity", EntityID: "O1", Action: models.AuditActionUpdate, Timestamp: now.Add(time.Second)}))
	require.NoError(t, repo.Append(t.Context(), &models.AuditLogEntry{ID: "a1", EntityType: "Opportunity", EntityID: "O1", Action: models.AuditActionWorkflowTrigger, Timestamp: now}))
	require.NoError(t, repo.Append(t.Context(), &models.AuditLogEntry{ID: "a3", EntityType: "Lead", EntityID: "L1", Action: models.AuditActionCreate, Timestamp: now}))

	entries, err := repo.ListByEntity(t.Context(), "Opportunity", "O1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].ID)
	assert.Equal(t, "a2", entries[1].ID)

	err = repo.Append(t.Context(), &models.AuditLogEntry{ID: "a1", EntityType: "Opportunity", EntityID: "O1"})
	assert.Error(t, err, "entries are immutable")
}

func TestDocumentTemplateRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DocumentTemplateRepository()

	_, err := repo.GetDefault(t.Context(), models.DocumentTypeQuote)
	assert.True(t, persistence.IsDocumentTemplateNotFound(err))

	require.NoError(t, repo.Save(t.Context(), &models.DocumentTemplate{ID: "t1", DocumentType: models.DocumentTypeQuote, Name: "custom", IsDefault: false}))
	require.NoError(t, repo.Save(t.Context(), &models.DocumentTemplate{ID: "t2", DocumentType: models.DocumentTypeQuote, Name: "default", IsDefault: true}))

	template, err := repo.GetDefault(t.Context(), models.DocumentTypeQuote)
	require.NoError(t, err)
	assert.Equal(t, "t2", template.ID)

	_, err = repo.GetDefault(t.Context(), models.DocumentTypeInvoice)
	assert.Error(t, err)
}
