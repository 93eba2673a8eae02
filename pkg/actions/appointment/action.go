// Package appointment provides the SCHEDULE_APPOINTMENT action.
package appointment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pandacrm/automation/pkg/actions"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/template"
)

const defaultDurationMinutes = 60

// Action delegates booking to an AppointmentScheduler.
type Action struct {
	WorkType           string
	DurationMinutes    int
	PreferredDate      string
	PreferredDateField string
	AssigneeField      string

	scheduler protocol.AppointmentScheduler
}

// NewAction creates a SCHEDULE_APPOINTMENT action from configuration.
func NewAction(config map[string]any, scheduler protocol.AppointmentScheduler) (*Action, error) {
	workType, err := actions.RequireString(config, "workType")
	if err != nil {
		return nil, err
	}

	duration := actions.Int(config, "duration", defaultDurationMinutes)
	if duration <= 0 {
		return nil, fmt.Errorf("'duration' must be positive, got %d", duration)
	}

	preferredDate := actions.String(config, "preferredDate", "")
	if preferredDate != "" && !template.HasPlaceholders(preferredDate) {
		_, err = parseDate(preferredDate)
		if err != nil {
			return nil, err
		}
	}

	return &Action{
		WorkType:           workType,
		DurationMinutes:    duration,
		PreferredDate:      preferredDate,
		PreferredDateField: actions.String(config, "preferredDateField", ""),
		AssigneeField:      actions.String(config, "assigneeField", ""),
		scheduler:          scheduler,
	}, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	request := protocol.AppointmentRequest{
		WorkType:        a.WorkType,
		DurationMinutes: a.DurationMinutes,
		RecordType:      actx.TriggerObject,
		RecordID:        actx.RecordID(),
	}

	if a.AssigneeField != "" {
		request.AssigneeID = template.Stringify(template.Resolve(actx.Record, a.AssigneeField))
	}

	preferred := template.Interpolate(a.PreferredDate, actx.Record)
	if a.PreferredDateField != "" {
		if value := template.Stringify(template.Resolve(actx.Record, a.PreferredDateField)); value != "" {
			preferred = value
		}
	}

	if preferred != "" {
		date, err := parseDate(preferred)
		if err != nil {
			return nil, err
		}

		request.PreferredDate = date
	}

	appointmentID, err := a.scheduler.Schedule(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule appointment: %w", err)
	}

	logger.InfoContext(ctx, "Appointment scheduled",
		"module", "appointment_action",
		"appointment_id", appointmentID,
		"work_type", a.WorkType,
	)

	return map[string]any{
		"scheduled":     true,
		"appointmentId": appointmentID,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return date.UTC(), nil
	}

	date, err = time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid preferred date %q: %w", value, err)
	}

	return date, nil
}
