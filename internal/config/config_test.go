package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omochice/toy-tictactoe-client/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := config.FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
	assert.Equal(t, 10, c.ReconnectAttempts)
	assert.Equal(t, time.Second, c.ReconnectDelay)
	assert.Equal(t, 10*time.Second, c.DialTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	c, err := config.FromEnv(env(map[string]string{
		"SERVER_URL":         "ws://game.example:9000/ws",
		"TRANSPORT":          "gorilla",
		"CODEC":              "proto",
		"RECONNECT_ATTEMPTS": "0",
		"RECONNECT_DELAY":    "250ms",
		"DIAL_TIMEOUT":       "3s",
		"CONSUL_ADDRS":       "a:8500,b:8500",
		"STATUS_ADDR":        ":9090",
		"DEBUG":              "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "ws://game.example:9000/ws", c.ServerURL)
	assert.Equal(t, config.TransportGorilla, c.Transport)
	assert.Equal(t, "proto", c.Codec)
	assert.Equal(t, 250*time.Millisecond, c.ReconnectDelay)
	assert.Equal(t, 3*time.Second, c.DialTimeout)
	assert.Equal(t, "a:8500,b:8500", c.ConsulAddrs)
	assert.Equal(t, ":9090", c.StatusAddr)
	assert.True(t, c.Debug)

	opts := c.TransportOptions("id-1")
	assert.Equal(t, -1, opts.ReconnectAttempts, "0 means retry forever")
	assert.Equal(t, "id-1", opts.ClientID)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TRANSPORT", "tcp"},
		{"CODEC", "xml"},
		{"RECONNECT_ATTEMPTS", "many"},
		{"RECONNECT_ATTEMPTS", "-2"},
		{"RECONNECT_DELAY", "soon"},
		{"DIAL_TIMEOUT", "10"},
		{"DEBUG", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			_, err := config.FromEnv(env(map[string]string{tt.key: tt.value}))
			assert.True(t, errors.Is(err, config.ErrInvalid), "error = %v", err)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRANSPORT=gobwas\nCONSUL_SERVICE=ttt-test\n"), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("CONSUL_SERVICE", "from-env")
	t.Setenv("TRANSPORT", "")
	os.Unsetenv("TRANSPORT")

	c, err := config.Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, config.TransportGobwas, c.Transport)
	assert.Equal(t, "from-env", c.ConsulService)
}

func TestLoad_MissingFileIsNotFatal(t *testing.T) {
	_, err := config.Load(nil, filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
