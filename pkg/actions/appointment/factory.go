package appointment

import (
	"context"

	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/protocol"
)

// ActionFactory creates SCHEDULE_APPOINTMENT actions.
type ActionFactory struct {
	scheduler protocol.AppointmentScheduler
}

// NewActionFactory creates a new ActionFactory.
func NewActionFactory(scheduler protocol.AppointmentScheduler) *ActionFactory {
	return &ActionFactory{scheduler: scheduler}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.scheduler)
}

func (f *ActionFactory) ID() string {
	return string(models.ActionTypeScheduleAppointment)
}

func (f *ActionFactory) Name() string {
	return "Schedule Appointment"
}

func (f *ActionFactory) Description() string {
	return "Books a service appointment for the triggering record."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workType": map[string]any{
				"type":     "string",
				"examples": []string{"INSPECTION", "INSTALLATION", "REPAIR"},
			},
			"duration": map[string]any{
				"type":        "integer",
				"description": "Appointment length in minutes.",
				"minimum":     1,
				"default":     defaultDurationMinutes,
			},
			"preferredDate": map[string]any{
				"type":        "string",
				"description": "Preferred date, RFC 3339 or YYYY-MM-DD.",
			},
			"preferredDateField": map[string]any{
				"type":        "string",
				"description": "Path of the preferred date on the triggering record. Takes precedence over preferredDate.",
			},
			"assigneeField": map[string]any{
				"type":        "string",
				"description": "Path of the technician id on the triggering record.",
			},
		},
		"required": []string{"workType"},
	}
}
