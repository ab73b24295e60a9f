package usecase

import (
	"web-testgen/internal/usecase/adapters"
)

// serviceFactory hands every service the same session so scans, single
// interactions and runs never drive the browser at the same time.
type serviceFactory struct {
	deps    Params
	session *Session
	store   storeBackend
}

func newServiceFactory(deps Params) *serviceFactory {
	var store storeBackend = disabledStore{}
	if deps.Store != nil {
		store = deps.Store
	}

	return &serviceFactory{
		deps:    deps,
		session: NewSession(),
		store:   store,
	}
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Engine
}

func (f *serviceFactory) CreatePipelineService() adapters.PipelineService {
	return NewPipelineService(PipelineServiceParams{
		Config:   f.deps.Config,
		Logger:   f.deps.Logger,
		Engine:   f.deps.Engine,
		Scanner:  f.deps.Scanner,
		Executor: f.deps.Executor,
		Store:    f.store,
		Session:  f.session,
	})
}

func (f *serviceFactory) CreateRunnerService() adapters.RunnerService {
	return NewRunnerService(RunnerServiceParams{
		Config:   f.deps.Config,
		Logger:   f.deps.Logger,
		Engine:   f.deps.Engine,
		Executor: f.deps.Executor,
		Store:    f.store,
		Session:  f.session,
	})
}

func (f *serviceFactory) CreateDocumentService() adapters.DocumentService {
	return f.store
}
