package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNew_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	New("info", "production", &buf).Info("hello", "job", "job001")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"job":"job001"`)

	buf.Reset()
	New("warn", "development", &buf).Info("dropped")
	assert.Empty(t, buf.String())
}

func TestContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
