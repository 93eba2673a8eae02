package httpapi

import (
	"context"
	"net/http"

	"github.com/pandacrm/automation/pkg/protocol"
)

// CommissionClient implements protocol.CommissionCalculator against the commission service.
type CommissionClient struct {
	client
}

func NewCommissionClient(baseURL string, httpClient *http.Client) *CommissionClient {
	return &CommissionClient{client: newClient(baseURL, httpClient)}
}

// Calculate posts the request to /commissions/calculate and returns the service response as-is.
func (c *CommissionClient) Calculate(ctx context.Context, request protocol.CommissionRequest) (map[string]any, error) {
	result := map[string]any{}

	err := c.post(ctx, "/commissions/calculate", request, &result)
	if err != nil {
		return nil, err
	}

	return result, nil
}
