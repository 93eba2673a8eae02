package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const welcomeYAML = `id: wf-welcome
name: Welcome leads
trigger_object: Lead
trigger_event: CREATE
is_active: true
actions:
  - action_order: 1
    action_type: SEND_EMAIL
    config:
      subject: Welcome
      template: "Hi {{firstName}}"
---
name: Escalate hot leads
trigger_object: Lead
trigger_event: FIELD_CHANGE
is_active: true
trigger_conditions:
  operator: AND
  rules:
    - field: rating
      operator: changed_to
      value: Hot
actions:
  - action_order: 1
    action_type: CREATE_TASK
    config:
      subject: "Call {{firstName}} today"
      priority: HIGH
  - action_order: 2
    action_type: DELAY
    delay_minutes: 60
`

const brokenJSON = `[
  {"name": "Fax everyone", "trigger_object": "Lead", "trigger_event": "CREATE",
   "actions": [{"action_order": 1, "action_type": "SEND_FAX"}]},
  {"name": "Spaceship launch", "trigger_object": "Spaceship", "trigger_event": "CREATE"}
]`

func welcomeLeadWorkflow() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:          "Welcome leads",
		TriggerObject: "Lead",
		TriggerEvent:  models.TriggerEventCreate,
		IsActive:      true,
		Actions: []models.ActionDefinition{
			{
				ActionOrder: 1,
				ActionType:  models.ActionTypeSendEmail,
				Config:      map[string]any{"subject": "Welcome", "template": "Hi {{firstName}}"},
			},
		},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefinitions(t *testing.T) {
	t.Run("yaml documents", func(t *testing.T) {
		definitions, err := loadDefinitions(writeFile(t, "workflows.yaml", welcomeYAML))
		require.NoError(t, err)
		require.Len(t, definitions, 2)

		assert.Equal(t, "wf-welcome", definitions[0].ID)
		assert.Equal(t, models.ActionTypeSendEmail, definitions[0].Actions[0].ActionType)

		hot := definitions[1]
		assert.Equal(t, models.TriggerEventFieldChange, hot.TriggerEvent)
		require.NotNil(t, hot.TriggerConditions)
		assert.Equal(t, models.OperatorChangedTo, hot.TriggerConditions.Rules[0].Operator)
		assert.Equal(t, 60, hot.Actions[1].DelayMinutes)
	})

	t.Run("json array", func(t *testing.T) {
		definitions, err := loadDefinitions(writeFile(t, "broken.json", brokenJSON))
		require.NoError(t, err)
		assert.Len(t, definitions, 2)
	})

	t.Run("single json object", func(t *testing.T) {
		definitions, err := loadDefinitions(writeFile(t, "one.JSON", `{"name": "Only one"}`))
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, "Only one", definitions[0].Name)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := loadDefinitions(writeFile(t, "bad.yaml", "name: [unterminated"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadDefinitions(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestValidateFiles(t *testing.T) {
	rt := newTestRuntime(t)

	var out bytes.Buffer

	err := validateFiles(t.Context(), &out, rt.registry, []string{writeFile(t, "workflows.yaml", welcomeYAML)})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "OK      ")
	assert.Contains(t, out.String(), "Escalate hot leads (2 actions)")

	out.Reset()

	err = validateFiles(t.Context(), &out, rt.registry, []string{writeFile(t, "broken.json", brokenJSON)})
	require.ErrorIs(t, err, ErrInvalidDefinitions)
	assert.Contains(t, out.String(), "INVALID")
	assert.Contains(t, out.String(), "unknown action type")
	assert.Contains(t, out.String(), "unknown entity type")

	err = validateFiles(t.Context(), &out, rt.registry, nil)
	require.ErrorIs(t, err, ErrNoDefinitionFiles)
}

func TestImportFiles(t *testing.T) {
	rt := newTestRuntime(t)
	path := writeFile(t, "workflows.yaml", welcomeYAML)

	var out bytes.Buffer

	require.NoError(t, importFiles(t.Context(), &out, rt.repository, rt.registry, []string{path}))
	assert.Contains(t, out.String(), "Imported Welcome leads (wf-welcome)")

	stored, err := rt.repository.FetchAll(t.Context())
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Re-importing replaces the definition with a known id instead of duplicating it
	require.NoError(t, importFiles(t.Context(), &out, rt.repository, rt.registry, []string{path}))

	welcome, err := rt.repository.FetchByID(t.Context(), "wf-welcome")
	require.NoError(t, err)
	assert.Equal(t, "Welcome leads", welcome.Name)

	stored, err = rt.repository.FetchAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// Invalid files store nothing
	err = importFiles(t.Context(), &out, rt.repository, rt.registry, []string{writeFile(t, "broken.json", brokenJSON)})
	require.ErrorIs(t, err, ErrInvalidDefinitions)

	stored, err = rt.repository.FetchAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}
