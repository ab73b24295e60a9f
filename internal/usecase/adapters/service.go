package adapters

import (
	"context"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
	"web-testgen/internal/request"
)

type BrowserService interface {
	Name() string
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}

type PipelineService interface {
	Scan(ctx context.Context, url string) (*entity.ScanResult, error)
	Generate(ctx context.Context, req request.Synthesize) (*entity.Generation, error)
	Interact(ctx context.Context, req request.Interact) (*entity.InteractionResult, error)
	Export(doc *entity.TestDocument) (*entity.Export, error)
}

type RunnerService interface {
	Run(ctx context.Context, req request.Run) (*entity.RunReport, error)
}

type DocumentService interface {
	Latest(ctx context.Context, url string) (*entity.TestDocument, error)
	Get(ctx context.Context, runID string) (*entity.TestDocument, error)
	List(ctx context.Context, limit int) ([]ports.DocumentSummary, error)
}
