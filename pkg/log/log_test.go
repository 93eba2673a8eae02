package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup_Levels(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	Setup("error")
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelWarn))

	Setup("debug")
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))

	Setup("WARN")
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelWarn))

	Setup("unknown")
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestWithModule(t *testing.T) {
	var buf bytes.Buffer

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	WithModule("dispatcher").Info("ready")

	assert.Contains(t, buf.String(), "module=dispatcher")
}
