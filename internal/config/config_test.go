package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGIN", "LOG_LEVEL",
		"CHAT_REPLY_DELAY", "CHAT_OPEN_SCROLL_DELAY", "CHAT_SESSION_IDLE_TTL",
		"CHAT_SWEEP_INTERVAL", "CHAT_RULES_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "*", cfg.Server.AllowedOrigin)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1500*time.Millisecond, cfg.Chat.ReplyDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Chat.OpenScrollDelay)
	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionIdleTTL)
	assert.Equal(t, time.Minute, cfg.Chat.SweepInterval)
	assert.Empty(t, cfg.Chat.RulesFile)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("CHAT_REPLY_DELAY", "2s")
	t.Setenv("CHAT_OPEN_SCROLL_DELAY", "150")
	t.Setenv("CHAT_RULES_FILE", " /etc/lavajato/rules.yaml ")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Chat.ReplyDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Chat.OpenScrollDelay)
	assert.Equal(t, "/etc/lavajato/rules.yaml", cfg.Chat.RulesFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"port with space":   {"PORT", "80 80"},
		"bad duration":      {"CHAT_REPLY_DELAY", "soon"},
		"negative duration": {"CHAT_SESSION_IDLE_TTL", "-1m"},
		"zero millis":       {"CHAT_SWEEP_INTERVAL", "0"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			require.Error(t, err)
		})
	}
}
