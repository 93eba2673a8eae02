package webhook_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pandacrm/automation/pkg/actions/webhook"
	"github.com/pandacrm/automation/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNewAction_Defaults(t *testing.T) {
	t.Parallel()

	action, err := webhook.NewAction(map[string]any{"url": "https://example.com/hook"}, nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, action.Method)
	assert.Equal(t, 30*time.Second, action.Timeout)
	assert.Empty(t, action.Headers)
}

func TestNewAction_MissingURL(t *testing.T) {
	t.Parallel()

	_, err := webhook.NewAction(map[string]any{"method": "GET"}, nil)
	require.Error(t, err)
}

func TestAction_Execute_SendsInterpolatedRequest(t *testing.T) {
	t.Parallel()

	var (
		gotPath   string
		gotHeader string
		gotBody   map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Account")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))
	defer server.Close()

	action, err := webhook.NewAction(map[string]any{
		"url":     server.URL + "/opportunities/{{id}}",
		"method":  "put",
		"headers": map[string]any{"X-Account": "{accountId}"},
		"bodyTemplate": map[string]any{
			"name":   "{{name}}",
			"amount": "{{amount}}",
		},
	}, server.Client())
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), protocol.ActionContext{
		Record: map[string]any{"id": "O1", "name": "Acme", "amount": 1200.5, "accountId": "A9"},
	}, discard)
	require.NoError(t, err)

	assert.Equal(t, "/opportunities/O1", gotPath)
	assert.Equal(t, "A9", gotHeader)
	assert.Equal(t, map[string]any{"name": "Acme", "amount": "1200.5"}, gotBody)

	out := result.(map[string]any)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, http.StatusOK, out["status"])
	assert.Equal(t, map[string]any{"accepted": true}, out["response"])
}

func TestAction_Execute_StringBodyAndTextResponse(t *testing.T) {
	t.Parallel()

	var gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	action, err := webhook.NewAction(map[string]any{
		"url":          server.URL,
		"bodyTemplate": "lead {{name}} converted",
	}, nil)
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), protocol.ActionContext{Record: map[string]any{"name": "Jo"}}, discard)
	require.NoError(t, err)

	assert.Equal(t, "lead Jo converted", gotBody)
	assert.Equal(t, "ok", result.(map[string]any)["response"])
}

func TestAction_Execute_ErrorStatusIsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	action, err := webhook.NewAction(map[string]any{"url": server.URL}, nil)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), protocol.ActionContext{Record: map[string]any{}}, discard)
	require.ErrorIs(t, err, webhook.ErrWebhookStatus)
}

func TestAction_Execute_NetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	action, err := webhook.NewAction(map[string]any{"url": url, "timeoutSeconds": 1}, nil)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), protocol.ActionContext{Record: map[string]any{}}, discard)
	require.Error(t, err)
}
