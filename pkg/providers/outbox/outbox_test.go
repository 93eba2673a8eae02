package outbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pandacrm/automation/pkg/channels/gochannel"
	"github.com/pandacrm/automation/pkg/eventbus"
	"github.com/pandacrm/automation/pkg/events"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/providers/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestOutbox_Send(t *testing.T) {
	bus := newBus(t)
	received := make(chan *events.MessageRequested, 1)

	require.NoError(t, bus.Handle(events.MessageRequestedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.MessageRequested)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	box := outbox.New(bus, discard)

	handle, err := box.Send(t.Context(), protocol.Message{
		Channel:    protocol.ChannelSMS,
		To:         "+15550100",
		Body:       "Your technician is on the way",
		RecordType: "WorkOrder",
		RecordID:   "W1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	select {
	case event := <-received:
		assert.Equal(t, handle, event.ID)
		assert.Equal(t, protocol.ChannelSMS, event.Message.Channel)
		assert.Equal(t, "+15550100", event.Message.To)
		assert.Equal(t, "W1", event.Message.RecordID)
	case <-time.After(2 * time.Second):
		t.Fatal("message.requested event was not delivered")
	}
}

func TestOutbox_SendRequiresRecipient(t *testing.T) {
	box := outbox.New(newBus(t), discard)

	_, err := box.Send(t.Context(), protocol.Message{Channel: protocol.ChannelEmail, Subject: "Hi"})
	require.ErrorIs(t, err, outbox.ErrMissingRecipient)
}

func TestOutbox_NotifyAgreementSent(t *testing.T) {
	bus := newBus(t)
	received := make(chan *events.AgreementSent, 1)

	require.NoError(t, bus.Handle(events.AgreementSentEvent, func(_ context.Context, event any) error {
		received <- event.(*events.AgreementSent)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	box := outbox.New(bus, discard)

	err := box.NotifyAgreementSent(t.Context(), protocol.AgreementNotification{
		AgreementID:    "A1",
		DocumentType:   "CONTRACT",
		SigningURL:     "https://sign.example.com/sign/abc",
		RecipientEmail: "jane@example.com",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "A1", event.Notification.AgreementID)
		assert.Equal(t, "https://sign.example.com/sign/abc", event.Notification.SigningURL)
	case <-time.After(2 * time.Second):
		t.Fatal("agreement.sent event was not delivered")
	}
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, string, eventbus.Event) error {
	return errors.New("broker unavailable")
}

func TestOutbox_PublishFailures(t *testing.T) {
	box := outbox.New(brokenPublisher{}, discard)

	_, err := box.Send(t.Context(), protocol.Message{Channel: protocol.ChannelSMS, To: "+15550100"})
	require.ErrorContains(t, err, "broker unavailable")

	err = box.NotifyAgreementSent(t.Context(), protocol.AgreementNotification{AgreementID: "A1"})
	require.ErrorContains(t, err, "broker unavailable")
}
