package registry

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/pandacrm/automation/pkg/actions/agreement"
	"github.com/pandacrm/automation/pkg/actions/appointment"
	"github.com/pandacrm/automation/pkg/actions/commission"
	"github.com/pandacrm/automation/pkg/actions/createrecord"
	"github.com/pandacrm/automation/pkg/actions/createtask"
	"github.com/pandacrm/automation/pkg/actions/messaging"
	"github.com/pandacrm/automation/pkg/actions/updatefield"
	"github.com/pandacrm/automation/pkg/actions/webhook"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/records"
)

// Dependencies are the collaborators the built-in action handlers are wired to.
type Dependencies struct {
	Store          records.Store
	Auditor        protocol.Auditor
	Messenger      protocol.Messenger
	Commissions    protocol.CommissionCalculator
	Appointments   protocol.AppointmentScheduler
	Agreements     protocol.AgreementNotifier
	Templates      agreement.TemplateSource
	HTTPClient     *http.Client
	Clock          clock.Clock
	SigningBaseURL string
}

// RegisterDefaultActions registers every built-in action kind. DELAY has no factory; the
// engine persists it as a deferred action.
func (r *Registry) RegisterDefaultActions(deps Dependencies) {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	r.RegisterAction(messaging.NewSMSActionFactory(deps.Messenger))
	r.RegisterAction(messaging.NewEmailActionFactory(deps.Messenger))
	r.RegisterAction(updatefield.NewActionFactory(deps.Store, deps.Auditor, deps.Clock))
	r.RegisterAction(createrecord.NewActionFactory(deps.Store, deps.Auditor, deps.Clock))
	r.RegisterAction(createtask.NewActionFactory(deps.Store, deps.Auditor, deps.Clock))
	r.RegisterAction(webhook.NewActionFactory(deps.HTTPClient))
	r.RegisterAction(commission.NewActionFactory(deps.Commissions))
	r.RegisterAction(appointment.NewActionFactory(deps.Appointments))
	r.RegisterAction(agreement.NewActionFactory(agreement.Dependencies{
		Store:          deps.Store,
		Auditor:        deps.Auditor,
		Templates:      deps.Templates,
		Notifier:       deps.Agreements,
		Clock:          deps.Clock,
		SigningBaseURL: deps.SigningBaseURL,
	}))
}
