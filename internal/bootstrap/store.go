package bootstrap

import (
	"context"
	"web-testgen/internal/config"
	"web-testgen/internal/ports"
	"web-testgen/internal/storage"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newStore(lc fx.Lifecycle, conf *config.Config, logger *zap.Logger) (ports.DocumentStore, error) {
	store, err := storage.Open(context.Background(), conf.StoreConfig.Path, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
