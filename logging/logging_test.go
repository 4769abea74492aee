package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithAttrsCarriedToLogLines(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := WithAttrs(context.Background(), slog.String("run_id", "r-1"))
	ctx = WithAttrs(ctx, slog.String("command", "fix"))
	Info(ctx, "reconcile finished", slog.Int("updated", 3))

	line := buf.String()
	assert.Contains(t, line, `"run_id":"r-1"`)
	assert.Contains(t, line, `"command":"fix"`)
	assert.Contains(t, line, `"updated":3`)
	assert.Len(t, Attrs(ctx), 2)
}
