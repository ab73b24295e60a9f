package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"web-testgen/internal/codegen"
	"web-testgen/internal/config"
	"web-testgen/internal/document"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
	"web-testgen/internal/request"
	"web-testgen/internal/synth"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"
	"web-testgen/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	pipelineServiceName = "PipelineService"
	pipelineTracer      = "usecase.pipeline"
)

type PipelineService struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	engine   ports.Engine
	scanner  ports.PageScanner
	executor ports.InteractionExecutor
	store    storeBackend
	session  *Session
}

type PipelineServiceParams struct {
	Config   *config.Config
	Logger   *zap.Logger
	Engine   ports.Engine
	Scanner  ports.PageScanner
	Executor ports.InteractionExecutor
	Store    storeBackend
	Session  *Session
}

func NewPipelineService(params PipelineServiceParams) *PipelineService {
	store := params.Store
	if store == nil {
		store = disabledStore{}
	}

	return &PipelineService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, pipelineServiceName)),
		tracer:   otel.Tracer(pipelineTracer),
		engine:   params.Engine,
		scanner:  params.Scanner,
		executor: params.Executor,
		store:    store,
		session:  params.Session,
	}
}

// Scan holds the session for the whole scan.
func (s *PipelineService) Scan(ctx context.Context, url string) (*entity.ScanResult, error) {
	if err := (request.Scan{URL: url}).Validate(); err != nil {
		return nil, err
	}

	release, err := s.session.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.scanner.Scan(ctx, url)
}

// Generate scans the page and synthesizes its TestDocument. A scan that could
// not reach the page yields a Generation without a document and no error.
func (s *PipelineService) Generate(ctx context.Context, req request.Synthesize) (resp *entity.Generation, err error) {
	const op = "Generate"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, req.URL))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("url", req.URL),
		attribute.Bool("save", req.Save))
	defer func() {
		step.End(err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	scan, err := s.Scan(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	resp = &entity.Generation{Scan: scan}

	if scan.Status == entity.ScanStatusFailed {
		logger.Warn("Scan failed, nothing to synthesize", zap.String(logg.Code, scan.Code))

		return resp, nil
	}

	cases := synth.Synthesize(scan.Elements)
	step.AddEvent("cases synthesized", attribute.Int("cases", len(cases)))

	artifact, err := codegen.Generate(scan.Source.URL, cases)
	if err != nil {
		return nil, err
	}

	resp.Document = &entity.TestDocument{
		RunID:             scan.RunID,
		Source:            scan.Source,
		InventorySize:     len(scan.Elements),
		Cases:             cases,
		GeneratedArtifact: artifact,
	}

	if req.Save {
		if err := s.store.Save(ctx, resp.Document); err != nil {
			return resp, err
		}

		resp.Saved = true
	}

	logger.Info("Test document generated",
		zap.String(logg.RunID, scan.RunID),
		zap.Int("elements", len(scan.Elements)),
		zap.Int("cases", len(cases)),
		zap.Bool("saved", resp.Saved))

	return resp, nil
}

// Interact runs one action. When req.URL is set the page is loaded first; a
// load failure is reported as a failed result.
func (s *PipelineService) Interact(ctx context.Context, req request.Interact) (resp *entity.InteractionResult, err error) {
	const op = "Interact"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, string(req.Action)))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("action", string(req.Action)),
		attribute.String("category", string(req.Target.Category)))
	defer func() {
		step.End(err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := s.session.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if req.URL != "" {
		if err := s.load(ctx, req.URL); err != nil {
			logger.Warn("Page load failed", zap.String(logg.URL, req.URL), zap.Error(err))

			return &entity.InteractionResult{
				Status:     entity.InteractionFailed,
				Code:       apperr.CodeOf(err),
				Error:      err.Error(),
				Action:     req.Action,
				InputValue: req.InputValue,
			}, nil
		}
	}

	return s.executor.Interact(ctx, req.Target, req.Action, req.InputValue), nil
}

// Export writes the document and its generated test file under OUTPUT_DIR.
func (s *PipelineService) Export(doc *entity.TestDocument) (*entity.Export, error) {
	const op = "Export"

	if doc == nil {
		return nil, apperr.MalformedInputError(op, "document", errors.New("missing document"))
	}

	dir := s.config.OutputConfig.Dir
	name := doc.RunID
	if name == "" {
		name = fmt.Sprintf("document_%d", time.Now().UnixMilli())
	}

	out := &entity.Export{
		Document: filepath.Join(dir, name+document.Extension(s.config.OutputConfig.Format)),
		TestFile: filepath.Join(dir, "generated", name+"_test.go"),
	}

	if err := document.WriteFile(out.Document, doc); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(out.TestFile), 0o755); err != nil {
		return nil, exportError(op, err)
	}

	if err := os.WriteFile(out.TestFile, []byte(doc.GeneratedArtifact), 0o644); err != nil {
		return nil, exportError(op, err)
	}

	s.logger.Info("Document exported",
		zap.String(logg.Operation, op),
		zap.String("document", out.Document),
		zap.String("test_file", out.TestFile))

	return out, nil
}

func (s *PipelineService) load(ctx context.Context, url string) error {
	if err := s.engine.Navigate(ctx, url, s.config.BrowserConfig.Timeout); err != nil {
		return err
	}

	if err := s.engine.WaitReady(ctx, s.config.ScanConfig.PageReadyTimeout); err != nil {
		s.logger.Debug("Page not ready, continuing", zap.String(logg.URL, url), zap.Error(err))
	}

	return nil
}

func exportError(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: "write_failed",
		apperr.MetaStage:  apperr.StagePersistence,
	})
}
