package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_App(t *testing.T) {
	app := NewAPI(discard, newTestRuntime(t)).App()

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{name: "liveness", method: http.MethodGet, target: healthcheck.DefaultLivenessEndpoint, expectedStatus: http.StatusOK},
		{name: "readiness", method: http.MethodGet, target: healthcheck.DefaultReadinessEndpoint, expectedStatus: http.StatusOK},
		{name: "root", method: http.MethodGet, target: "/", expectedStatus: http.StatusOK, expectedBody: "CRM Automation API"},
		{name: "empty workflow list", method: http.MethodGet, target: "/workflows", expectedStatus: http.StatusOK, expectedBody: "[]"},
		{
			name:   "create workflow",
			method: http.MethodPost,
			target: "/workflows",
			body: `{"name":"Welcome leads","trigger_object":"Lead","trigger_event":"CREATE","is_active":true,
				"actions":[{"action_order":1,"action_type":"SEND_EMAIL","config":{"subject":"Welcome","template":"Hi {{firstName}}"}}]}`,
			expectedStatus: http.StatusCreated,
		},
		{name: "unknown route", method: http.MethodGet, target: "/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = bytes.NewBufferString(tt.body)
			}

			req := httptest.NewRequest(tt.method, tt.target, body)
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(data))

			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, string(bytes.TrimSpace(data)))
			}
		})
	}
}

func TestAPI_TriggerRunsStoredWorkflow(t *testing.T) {
	rt := newTestRuntime(t)
	app := NewAPI(discard, rt).App()

	_, err := rt.repository.Create(t.Context(), welcomeLeadWorkflow())
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"object_type": "Lead",
		"event":       "CREATE",
		"record":      map[string]any{"id": "L7", "email": "ada@example.com"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/triggers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Executions []struct {
			Status string `json:"status"`
		} `json:"executions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.Len(t, response.Executions, 1)
	assert.Equal(t, "COMPLETED", response.Executions[0].Status)
}
