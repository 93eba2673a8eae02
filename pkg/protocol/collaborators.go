package protocol

import (
	"context"
	"time"
)

// Channel is the delivery channel of an outbound message.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Message is an outbound SMS or email.
type Message struct {
	Channel    Channel `json:"channel"`
	To         string  `json:"to"`
	Subject    string  `json:"subject,omitempty"`
	Body       string  `json:"body,omitempty"`
	TemplateID string  `json:"template_id,omitempty"`
	RecordType string  `json:"record_type,omitempty"`
	RecordID   string  `json:"record_id,omitempty"`
}

// Messenger delivers messages and returns a provider delivery handle.
type Messenger interface {
	Send(ctx context.Context, message Message) (string, error)
}

// CommissionRequest asks for the commissions owed on a record.
type CommissionRequest struct {
	RecordType   string `json:"record_type"`
	RecordID     string `json:"record_id"`
	TriggerEvent string `json:"trigger_event"`
	ActorID      string `json:"actor_id,omitempty"`
}

// CommissionCalculator computes and stores commissions.
type CommissionCalculator interface {
	Calculate(ctx context.Context, request CommissionRequest) (map[string]any, error)
}

// AppointmentRequest asks the scheduling service for a service appointment.
type AppointmentRequest struct {
	WorkType        string    `json:"work_type"`
	DurationMinutes int       `json:"duration_minutes"`
	PreferredDate   time.Time `json:"preferred_date,omitzero"`
	AssigneeID      string    `json:"assignee_id,omitempty"`
	RecordType      string    `json:"record_type"`
	RecordID        string    `json:"record_id"`
}

// AppointmentScheduler books service appointments and returns the appointment id.
type AppointmentScheduler interface {
	Schedule(ctx context.Context, request AppointmentRequest) (string, error)
}

// AgreementNotification tells the signing automation that an agreement is ready to send.
type AgreementNotification struct {
	AgreementID    string `json:"agreement_id"`
	DocumentType   string `json:"document_type"`
	SigningURL     string `json:"signing_url"`
	RecipientName  string `json:"recipient_name,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	RecipientPhone string `json:"recipient_phone,omitempty"`
	SendViaSMS     bool   `json:"send_via_sms"`
}

// AgreementNotifier triggers the external signing notification.
type AgreementNotifier interface {
	NotifyAgreementSent(ctx context.Context, notification AgreementNotification) error
}
