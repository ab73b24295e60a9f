package usecase

import (
	"web-testgen/internal/config"
	"web-testgen/internal/ports"
	"web-testgen/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Browser   adapters.BrowserService
	Pipeline  adapters.PipelineService
	Runner    adapters.RunnerService
	Documents adapters.DocumentService
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Config   *config.Config
	Engine   ports.Engine
	Scanner  ports.PageScanner
	Executor ports.InteractionExecutor
	Store    ports.DocumentStore `optional:"true"`
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Browser:   factory.CreateBrowserService(),
		Pipeline:  factory.CreatePipelineService(),
		Runner:    factory.CreateRunnerService(),
		Documents: factory.CreateDocumentService(),
	}
}
