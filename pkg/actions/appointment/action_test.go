package appointment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) Schedule(ctx context.Context, request protocol.AppointmentRequest) (string, error) {
	args := m.Called(ctx, request)

	return args.String(0), args.Error(1)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestAction_SchedulesFromRecordFields(t *testing.T) {
	scheduler := &mockScheduler{}
	scheduler.On("Schedule", mock.Anything, protocol.AppointmentRequest{
		WorkType:        "INSPECTION",
		DurationMinutes: 90,
		PreferredDate:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		AssigneeID:      "tech-4",
		RecordType:      "WorkOrder",
		RecordID:        "WO-1",
	}).Return("SA-1", nil)

	action, err := NewActionFactory(scheduler).Create(t.Context(), map[string]any{
		"workType":           "INSPECTION",
		"duration":           float64(90),
		"preferredDate":      "2025-01-01",
		"preferredDateField": "inspection.date",
		"assigneeField":      "technicianId",
	})
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), protocol.ActionContext{
		TriggerObject: "WorkOrder",
		Record: map[string]any{
			"id":           "WO-1",
			"technicianId": "tech-4",
			"inspection":   map[string]any{"date": "2025-03-04"},
		},
	}, discard)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"scheduled": true, "appointmentId": "SA-1"}, result)
	scheduler.AssertExpectations(t)
}

func TestAction_DefaultsWithoutDate(t *testing.T) {
	scheduler := &mockScheduler{}
	scheduler.On("Schedule", mock.Anything, mock.MatchedBy(func(r protocol.AppointmentRequest) bool {
		return r.DurationMinutes == 60 && r.PreferredDate.IsZero() && r.AssigneeID == ""
	})).Return("SA-2", nil)

	action, err := NewAction(map[string]any{"workType": "REPAIR"}, scheduler)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), protocol.ActionContext{Record: map[string]any{"id": "A1"}}, discard)
	require.NoError(t, err)
	scheduler.AssertExpectations(t)
}

func TestNewAction_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing work type", map[string]any{}},
		{"zero duration", map[string]any{"workType": "REPAIR", "duration": 0}},
		{"bad date", map[string]any{"workType": "REPAIR", "preferredDate": "next tuesday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAction(tt.config, &mockScheduler{})
			require.Error(t, err)
		})
	}
}

func TestAction_SchedulerFailure(t *testing.T) {
	scheduler := &mockScheduler{}
	scheduler.On("Schedule", mock.Anything, mock.Anything).Return("", errors.New("no capacity"))

	action, err := NewAction(map[string]any{"workType": "REPAIR"}, scheduler)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), protocol.ActionContext{Record: map[string]any{}}, discard)
	require.ErrorContains(t, err, "no capacity")
}
