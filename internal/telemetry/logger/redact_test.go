package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSensitive(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"authorization key", slog.String("authorization", "whatever"), redactedValue},
		{"cookie key", slog.String("Cookie", "sid=1"), redactedValue},
		{"password key", slog.String("db_password", "hunter2"), redactedValue},
		{"basic value", slog.String("header", "Basic dXNlcjpwYXNz"), "Basic " + redactedValue},
		{"bearer value", slog.String("x", "Bearer abc"), "Bearer " + redactedValue},
		{"empty sensitive", slog.String("password", ""), ""},
		{"normal", slog.String("path", "/index"), "/index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactSensitive(tt.attr)
			assert.Equal(t, tt.want, got.Value.String())
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("req", slog.String("cookie", "sid=1"), slog.String("path", "/"))
	got := redactSensitive(a).Value.Group()
	assert.Equal(t, redactedValue, got[0].Value.String())
	assert.Equal(t, "/", got[1].Value.String())
}

func TestRedactSensitive_NonString(t *testing.T) {
	a := slog.Int("token_count", 3)
	assert.Equal(t, int64(3), redactSensitive(a).Value.Int64())
}

func TestLogger_RedactsOnOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})
	l.Info("request", "authorization", "Basic secret")
	assert.NotContains(t, buf.String(), "secret")
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("Authorization"))
	assert.True(t, IsSensitiveKey("set_cookie"))
	assert.False(t, IsSensitiveKey("host"))
}
