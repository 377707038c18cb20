package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:8401", c.ServerAddr)
	assert.Equal(t, 5*time.Second, c.DialTimeout)
	assert.Equal(t, 30*time.Second, c.ReplyTimeout)
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")

	require.NoError(t, err)
	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:8401", cfg.ServerAddr)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/definitely/not/here.json")
	require.Error(t, err)
}
