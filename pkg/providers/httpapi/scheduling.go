package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/pandacrm/automation/pkg/protocol"
)

// ErrMissingAppointmentID is returned when the scheduling service accepts a request without
// naming the appointment it booked.
var ErrMissingAppointmentID = errors.New("scheduling service returned no appointment id")

type appointmentResponse struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointmentId"`
}

// SchedulingClient implements protocol.AppointmentScheduler against the scheduling service.
type SchedulingClient struct {
	client
}

func NewSchedulingClient(baseURL string, httpClient *http.Client) *SchedulingClient {
	return &SchedulingClient{client: newClient(baseURL, httpClient)}
}

func (c *SchedulingClient) Schedule(ctx context.Context, request protocol.AppointmentRequest) (string, error) {
	var response appointmentResponse

	err := c.post(ctx, "/appointments", request, &response)
	if err != nil {
		return "", err
	}

	switch {
	case response.AppointmentID != "":
		return response.AppointmentID, nil
	case response.ID != "":
		return response.ID, nil
	default:
		return "", ErrMissingAppointmentID
	}
}
