package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRedactsAndHashes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Info("login", "user_id", "u-123", "api_key", "sk-abc", "event", "stream_start")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "stream_start", fields["event"])
	hashed, ok := fields["user_id"].(string)
	require.True(t, ok)
	assert.Contains(t, hashed, "hash:")
	assert.NotContains(t, hashed, "u-123")
}

func TestSanitizeNestedMap(t *testing.T) {
	got := sanitizeValue("payload", map[string]interface{}{
		"password": "hunter2",
		"name":     "ok",
	})
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["password"] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", m["password"])
	}
	if m["name"] != "ok" {
		t.Fatalf("name changed: %v", m["name"])
	}
}

func TestSanitizeOddKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output %v", out)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("ignored", "k", "v")
	log.With("a", 1).Warn("still ignored")
	log.Sync()
}

func TestHealthFieldsRedacted(t *testing.T) {
	for _, key := range []string{"medical_conditions", "injuries", "Step_Injury_Notes"} {
		if got := sanitizeValue(normalizeKey(key), "bad knee"); got != redacted {
			t.Fatalf("%s not redacted: %v", key, got)
		}
	}
	if !looksLikeJWT("eyJhbGciOiJIUzI1.eyJzdWIiOiIxMjM0.sig") {
		t.Fatalf("jwt-shaped string not detected")
	}
	if looksLikeJWT("a.b.c") {
		t.Fatalf("short dotted string treated as jwt")
	}
}
