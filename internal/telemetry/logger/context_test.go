package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogger_FromContext(t *testing.T) {
	l := Discard()
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestIDs(t *testing.T) {
	ctx := WithConnID(WithRequestID(context.Background(), "req-1"), "conn-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "conn-1", ConnIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, ConnIDFromContext(context.Background()))
}

func TestL_AddsIDs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	ctx := WithLogger(context.Background(), l)
	ctx = WithConnID(ctx, "01CONN")
	ctx = WithRequestID(ctx, "01REQ")
	L(ctx).Info("served")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "01CONN", lines[0]["conn_id"])
	assert.Equal(t, "01REQ", lines[0]["request_id"])
}

func TestL_NoIDs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})
	L(WithLogger(context.Background(), l)).Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "request_id")
	assert.NotContains(t, lines[0], "conn_id")
}
