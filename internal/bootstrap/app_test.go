package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"web-testgen/internal/browser"
	"web-testgen/internal/cdp"
	"web-testgen/internal/config"
	"web-testgen/internal/htmldom"
	"web-testgen/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticConfig(t *testing.T) *config.Config {
	t.Helper()

	conf := config.Default()
	conf.AppConfig.LogLevel = "error"
	conf.BrowserConfig.Engine = config.EngineStatic
	conf.BrowserConfig.Timeout = 5 * time.Second
	conf.OutputConfig.Dir = t.TempDir()
	conf.OutputConfig.Format = config.FormatJSON
	conf.ServerConfig.MCPTransport = config.TransportStdio

	return conf
}

func TestRunStartsEngine(t *testing.T) {
	conf := staticConfig(t)

	err := Run(context.Background(), conf, func(ctx context.Context, rt *Runtime) error {
		assert.True(t, rt.Usecase.Browser.IsReady())
		assert.Equal(t, config.EngineStatic, rt.Usecase.Browser.Name())
		assert.NotNil(t, rt.HTTP)
		assert.NotNil(t, rt.MCP)
		assert.NotNil(t, rt.Console)

		_, err := rt.Usecase.Documents.List(ctx, 10)
		assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

		return nil
	})
	require.NoError(t, err)
}

func TestRunWithStore(t *testing.T) {
	conf := staticConfig(t)
	conf.StoreConfig.Enabled = true
	conf.StoreConfig.Path = filepath.Join(t.TempDir(), "docs.db")

	err := Run(context.Background(), conf, func(ctx context.Context, rt *Runtime) error {
		summaries, err := rt.Usecase.Documents.List(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, summaries)

		return nil
	})
	require.NoError(t, err)
	assert.FileExists(t, conf.StoreConfig.Path)
}

func TestNewEngine(t *testing.T) {
	conf := config.Default()
	params := engineParams{Config: conf, Logger: zap.NewNop()}

	tests := []struct {
		engine string
		want   any
	}{
		{config.EnginePlaywright, &browser.Manager{}},
		{config.EngineChromedp, &cdp.Engine{}},
		{config.EngineStatic, &htmldom.Engine{}},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			conf.BrowserConfig.Engine = tt.engine

			engine, err := newEngine(params)
			require.NoError(t, err)
			assert.IsType(t, tt.want, engine)
			assert.Equal(t, tt.engine, engine.Name())
		})
	}

	conf.BrowserConfig.Engine = "lynx"
	_, err := newEngine(params)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	conf := config.Default()
	conf.AppConfig.LogLevel = "warn"

	logger, err := newLogger(conf)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}
