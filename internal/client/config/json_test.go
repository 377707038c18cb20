package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_OverlaysPresentFields(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_addr":  "license.example:9000",
		"dial_timeout": "2s",
	})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJson(cfg, path))

	assert.Equal(t, "license.example:9000", cfg.ServerAddr)
	assert.Equal(t, 2*time.Second, cfg.DialTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReplyTimeout, "absent field keeps its default")
}

func Test_parseJson_IntegerNanoseconds(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"reply_timeout": int64(1500 * time.Millisecond),
	})

	cfg := &Config{}
	require.NoError(t, parseJson(cfg, path))
	assert.Equal(t, 1500*time.Millisecond, cfg.ReplyTimeout)
}

func Test_parseJson_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	err := parseJson(&Config{}, path)
	require.Error(t, err)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"server_addr": "10.1.2.3:8401"})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3:8401", cfg.ServerAddr)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}
