package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
	EngineStatic     = "static"

	FormatJSON = "json"
	FormatYAML = "yaml"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Config struct {
	AppConfig      *AppConfig
	BrowserConfig  *BrowserConfig
	ScanConfig     *ScanConfig
	InteractConfig *InteractConfig
	OutputConfig   *OutputConfig
	StoreConfig    *StoreConfig
	ServerConfig   *ServerConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	Tracing  bool   `envconfig:"TRACING" default:"false"`
}

type BrowserConfig struct {
	Engine        string        `envconfig:"BROWSER_ENGINE" default:"playwright"`
	Headless      bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo        int           `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout       time.Duration `envconfig:"BROWSER_TIMEOUT" default:"30s"`
	ScreenshotDir string        `envconfig:"BROWSER_SCREENSHOT_DIR" default:""`
	Install       bool          `envconfig:"BROWSER_INSTALL" default:"false"`
}

type ScanConfig struct {
	PageReadyTimeout time.Duration `envconfig:"PAGE_READY_TIMEOUT" default:"15s"`
	SettleWait       time.Duration `envconfig:"SCAN_SETTLE_WAIT" default:"0s"`
}

type InteractConfig struct {
	ResolveTimeout    time.Duration `envconfig:"RESOLVE_TIMEOUT" default:"10s"`
	SettleWait        time.Duration `envconfig:"INTERACT_SETTLE_WAIT" default:"1s"`
	DialogWait        time.Duration `envconfig:"DIALOG_WAIT" default:"2s"`
	ResetBetweenCases bool          `envconfig:"RESET_BETWEEN_CASES" default:"true"`
}

type OutputConfig struct {
	Dir    string `envconfig:"OUTPUT_DIR" default:"./out"`
	Format string `envconfig:"OUTPUT_FORMAT" default:"json"`
}

type StoreConfig struct {
	Enabled bool   `envconfig:"STORE_ENABLED" default:"false"`
	Path    string `envconfig:"STORE_PATH" default:"./webtestgen.db"`
}

type ServerConfig struct {
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":8080"`
	MCPTransport string `envconfig:"MCP_TRANSPORT" default:"stdio"`
	MCPAddr      string `envconfig:"MCP_ADDR" default:":8090"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	conf := Default()

	// Sections are processed one by one so that envconfig does not prefix
	// keys with the struct field name.
	sections := []any{
		conf.AppConfig,
		conf.BrowserConfig,
		conf.ScanConfig,
		conf.InteractConfig,
		conf.OutputConfig,
		conf.StoreConfig,
		conf.ServerConfig,
	}

	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("read config from env vars: %w", err)
		}
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Default returns a config with every section allocated and zero valued.
// GetConfig fills it from the environment; tests set fields directly.
func Default() *Config {
	return &Config{
		AppConfig:      &AppConfig{},
		BrowserConfig:  &BrowserConfig{},
		ScanConfig:     &ScanConfig{},
		InteractConfig: &InteractConfig{},
		OutputConfig:   &OutputConfig{},
		StoreConfig:    &StoreConfig{},
		ServerConfig:   &ServerConfig{},
	}
}

func (c *Config) Validate() error {
	switch c.BrowserConfig.Engine {
	case EnginePlaywright, EngineChromedp, EngineStatic:
	default:
		return fmt.Errorf("unknown BROWSER_ENGINE %q", c.BrowserConfig.Engine)
	}

	switch c.OutputConfig.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown OUTPUT_FORMAT %q", c.OutputConfig.Format)
	}

	switch c.ServerConfig.MCPTransport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown MCP_TRANSPORT %q", c.ServerConfig.MCPTransport)
	}

	return nil
}
