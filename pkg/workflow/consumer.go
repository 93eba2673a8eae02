package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/pandacrm/automation/pkg/eventbus"
	"github.com/pandacrm/automation/pkg/events"
)

// Subscribe registers the dispatcher for record.changed events on bus.
func (d *Dispatcher) Subscribe(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.RecordChangedEvent, d.HandleRecordChanged)
}

// HandleRecordChanged processes a record.changed event. Malformed events are dropped since
// redelivery cannot fix them; any other failure is returned so the message is redelivered.
func (d *Dispatcher) HandleRecordChanged(ctx context.Context, event any) error {
	changed, ok := event.(*events.RecordChanged)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	summaries, err := d.ProcessTrigger(ctx, TriggerRequest{
		ObjectType:     changed.ObjectType,
		Event:          changed.Event,
		Record:         changed.Record,
		PreviousRecord: changed.PreviousRecord,
		ActorID:        changed.ActorID,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTrigger) {
			d.logger.WarnContext(ctx, "Dropping malformed record change", "event_id", changed.ID, "error", err)

			return nil
		}

		return err
	}

	d.logger.DebugContext(ctx, "Record change processed", "event_id", changed.ID, "executions", len(summaries))

	return nil
}
