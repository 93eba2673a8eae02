// Package webhook provides the CALL_WEBHOOK action.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pandacrm/automation/pkg/actions"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/pandacrm/automation/pkg/template"
)

const (
	defaultTimeoutSeconds = 30
	maxResponseBytes      = 1 << 20
)

// ErrWebhookStatus is returned when the endpoint answers with a status of 400 or more.
var ErrWebhookStatus = errors.New("webhook returned an error status")

// Action calls an HTTP endpoint.
type Action struct {
	URL          string
	Method       string
	Headers      map[string]string
	BodyTemplate any
	Timeout      time.Duration

	client *http.Client
}

// NewAction creates a CALL_WEBHOOK action from configuration.
func NewAction(config map[string]any, client *http.Client) (*Action, error) {
	url, err := actions.RequireString(config, "url")
	if err != nil {
		return nil, err
	}

	timeout := actions.Int(config, "timeoutSeconds", defaultTimeoutSeconds)
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	return &Action{
		URL:          url,
		Method:       strings.ToUpper(actions.String(config, "method", http.MethodPost)),
		Headers:      actions.StringMap(config, "headers"),
		BodyTemplate: config["bodyTemplate"],
		Timeout:      time.Duration(timeout) * time.Second,
		client:       client,
	}, nil
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "webhook_action")

	req, err := a.buildRequest(ctx, actx.Record)
	if err != nil {
		return nil, err
	}

	client := a.client
	if client == nil {
		client = &http.Client{Timeout: a.Timeout}
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: status %d", ErrWebhookStatus, resp.StatusCode)
	}

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)
	}

	logger.InfoContext(ctx, "Webhook called", "url", req.URL.String(), "status", resp.StatusCode)

	return map[string]any{
		"success":  true,
		"status":   resp.StatusCode,
		"response": body,
	}, nil
}

func (a *Action) buildRequest(ctx context.Context, record map[string]any) (*http.Request, error) {
	body, err := a.renderBody(record)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, template.Interpolate(a.URL, record), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range a.Headers {
		req.Header.Set(key, template.Interpolate(value, record))
	}

	return req, nil
}

func (a *Action) renderBody(record map[string]any) (io.Reader, error) {
	if a.BodyTemplate == nil {
		return nil, nil
	}

	rendered := template.InterpolateValue(a.BodyTemplate, record)
	if s, ok := rendered.(string); ok {
		return strings.NewReader(s), nil
	}

	data, err := json.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	return bytes.NewReader(data), nil
}
