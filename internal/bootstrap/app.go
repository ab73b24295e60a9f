package bootstrap

import (
	"context"
	"fmt"
	"time"
	"web-testgen/internal/browser"
	"web-testgen/internal/cdp"
	"web-testgen/internal/config"
	"web-testgen/internal/console"
	"web-testgen/internal/executor"
	"web-testgen/internal/htmldom"
	"web-testgen/internal/httpapi"
	"web-testgen/internal/mcpserver"
	"web-testgen/internal/ports"
	"web-testgen/internal/scanner"
	"web-testgen/internal/usecase"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const startTimeout = 2 * time.Minute

// Runtime is everything a command needs once the app has started.
type Runtime struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
	HTTP    *httpapi.Server
	MCP     *mcpserver.Server
	Console *console.Interface
}

// Module wires the application for conf. The engine is picked by
// BROWSER_ENGINE and the document store is only provided when enabled.
func Module(conf *config.Config) fx.Option {
	providers := []any{
		newLogger,
		newEngine,

		fx.Annotate(scanner.NewScanner, fx.As(new(ports.PageScanner))),
		fx.Annotate(executor.NewExecutor, fx.As(new(ports.InteractionExecutor))),

		usecase.NewUsecase,

		httpapi.NewServer,
		mcpserver.NewServer,
		console.NewInterface,
	}

	if conf.StoreConfig.Enabled {
		providers = append(providers, newStore)
	}

	return fx.Options(
		fx.Supply(conf),
		fx.Provide(providers...),
		fx.Invoke(
			setupTracing,
			manageBrowser,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			if conf.AppConfig.Debug {
				return &fxevent.ZapLogger{Logger: logger}
			}

			return fxevent.NopLogger
		}),
		fx.StartTimeout(startTimeout),
	)
}

func NewApp(conf *config.Config, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{Module(conf)}, opts...)...)
}

// Run starts the app, hands the runtime to fn and stops the app once fn
// returns. OS signals are left to the caller.
func Run(ctx context.Context, conf *config.Config, fn func(context.Context, *Runtime) error) (err error) {
	var rt Runtime

	app := NewApp(conf, fx.Populate(&rt))
	if err := app.Err(); err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		return err
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()

		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	return fn(ctx, &rt)
}

type engineParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func newEngine(params engineParams) (ports.Engine, error) {
	switch params.Config.BrowserConfig.Engine {
	case config.EnginePlaywright:
		return browser.NewManager(browser.Params{Config: params.Config, Logger: params.Logger}), nil
	case config.EngineChromedp:
		return cdp.NewEngine(cdp.Params{Config: params.Config, Logger: params.Logger}), nil
	case config.EngineStatic:
		return htmldom.NewEngine(htmldom.Params{Config: params.Config, Logger: params.Logger}), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", params.Config.BrowserConfig.Engine)
	}
}
