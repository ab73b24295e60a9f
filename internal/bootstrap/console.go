package bootstrap

import (
	"context"
	"web-testgen/internal/config"
	"web-testgen/internal/ports"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func manageBrowser(lc fx.Lifecycle, browser ports.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Launching browser...", zap.String("engine", browser.Name()))

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}

// RunConsole runs the interactive console until the user exits. The console
// handles interrupts itself, so ctx should not be tied to OS signals.
func RunConsole(ctx context.Context, conf *config.Config) error {
	return Run(ctx, conf, func(ctx context.Context, rt *Runtime) error {
		rt.Logger.Info("Starting console interface...")

		defer func() {
			if err := rt.Console.Stop(); err != nil {
				rt.Logger.Error("Failed to stop console", zap.Error(err))
			}
		}()

		return rt.Console.Start(ctx)
	})
}
