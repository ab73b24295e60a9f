package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaults(t *testing.T) {
	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, EnginePlaywright, conf.BrowserConfig.Engine)
	assert.True(t, conf.BrowserConfig.Headless)
	assert.Equal(t, 30*time.Second, conf.BrowserConfig.Timeout)
	assert.Equal(t, 15*time.Second, conf.ScanConfig.PageReadyTimeout)
	assert.Equal(t, 10*time.Second, conf.InteractConfig.ResolveTimeout)
	assert.Equal(t, time.Second, conf.InteractConfig.SettleWait)
	assert.Equal(t, 2*time.Second, conf.InteractConfig.DialogWait)
	assert.Equal(t, FormatJSON, conf.OutputConfig.Format)
	assert.Equal(t, TransportStdio, conf.ServerConfig.MCPTransport)
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("BROWSER_ENGINE", "static")
	t.Setenv("RESOLVE_TIMEOUT", "250ms")
	t.Setenv("OUTPUT_FORMAT", "yaml")
	t.Setenv("STORE_ENABLED", "true")

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, EngineStatic, conf.BrowserConfig.Engine)
	assert.Equal(t, 250*time.Millisecond, conf.InteractConfig.ResolveTimeout)
	assert.Equal(t, FormatYAML, conf.OutputConfig.Format)
	assert.True(t, conf.StoreConfig.Enabled)
}

func TestGetConfigRejectsUnknownEngine(t *testing.T) {
	t.Setenv("BROWSER_ENGINE", "netscape")

	_, err := GetConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROWSER_ENGINE")
}
