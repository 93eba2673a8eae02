// Package httpapi talks JSON over HTTP to the commission and scheduling services.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moogar0880/problems"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
)

var (
	ErrNotConfigured = errors.New("service URL is not configured")
	ErrServiceStatus = errors.New("service returned an error status")
)

// client is the shared request plumbing of the service clients.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, httpClient *http.Client) client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// post sends in as JSON and decodes the JSON response into out. Problem responses
// (RFC 7807) are turned into an ErrServiceStatus carrying their detail.
func (c client) post(ctx context.Context, path string, in, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, "+problems.ProblemMediaType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}

	err = json.Unmarshal(payload, out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func statusError(resp *http.Response, payload []byte) error {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), problems.ProblemMediaType) {
		var problem problems.Problem
		if json.Unmarshal(payload, &problem) == nil && problem.Detail != "" {
			return fmt.Errorf("%w: %d %s: %s", ErrServiceStatus, resp.StatusCode, problem.Title, problem.Detail)
		}
	}

	return fmt.Errorf("%w: %d %s", ErrServiceStatus, resp.StatusCode, strings.TrimSpace(string(payload)))
}
