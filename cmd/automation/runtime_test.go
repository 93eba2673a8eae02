package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRuntime(t *testing.T) *runtime {
	t.Helper()

	rt, err := newRuntime(t.Context(), discard, config{
		DatabaseURL:    t.TempDir(),
		EventBus:       "gochannel",
		SigningBaseURL: "https://sign.example.com",
		HTTPTimeout:    time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() { rt.Close(context.Background()) })

	return rt
}
