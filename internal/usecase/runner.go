package usecase

import (
	"context"
	"errors"
	"fmt"
	"web-testgen/internal/config"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
	"web-testgen/internal/request"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"
	"web-testgen/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	runnerServiceName = "RunnerService"
	runnerTracer      = "usecase.runner"
)

const (
	reasonHidden        = "target was not visible when scanned"
	reasonReferenceOnly = "target has no locators"
	reasonCancelled     = "run cancelled"
)

// RunnerService replays a TestDocument's cases one after another against the
// live page.
type RunnerService struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	engine   ports.Engine
	executor ports.InteractionExecutor
	store    storeBackend
	session  *Session
}

type RunnerServiceParams struct {
	Config   *config.Config
	Logger   *zap.Logger
	Engine   ports.Engine
	Executor ports.InteractionExecutor
	Store    storeBackend
	Session  *Session
}

func NewRunnerService(params RunnerServiceParams) *RunnerService {
	store := params.Store
	if store == nil {
		store = disabledStore{}
	}

	return &RunnerService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, runnerServiceName)),
		tracer:   otel.Tracer(runnerTracer),
		engine:   params.Engine,
		executor: params.Executor,
		store:    store,
		session:  params.Session,
	}
}

// Run executes the selected cases in document order. Hidden and
// reference-only targets are skipped without touching the page. Failing to
// open the source page is the only error; per-case failures land in the report.
func (s *RunnerService) Run(ctx context.Context, req request.Run) (resp *entity.RunReport, err error) {
	const op = "Run"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.document(ctx, req)
	if err != nil {
		return nil, err
	}

	cases, err := selectCases(doc, req.TestIDs)
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String(logg.RunID, doc.RunID), zap.String(logg.URL, doc.Source.URL))
	step.SetAttributes(
		attribute.String("run_id", doc.RunID),
		attribute.Int("cases", len(cases)))

	if !s.engine.IsReady() {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, fmt.Errorf("%s engine is not running", s.engine.Name()), map[string]any{
			apperr.MetaReason: "browser_not_ready",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	release, err := s.session.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.open(ctx, doc.Source.URL); err != nil {
		return nil, err
	}

	report := &entity.RunReport{
		RunID:   doc.RunID,
		Source:  doc.Source,
		Results: make([]entity.CaseResult, 0, len(cases)),
	}

	logger.Info("Running test cases", zap.Int("cases", len(cases)))

	dirty := false
	for _, tc := range cases {
		if ctx.Err() != nil {
			report.Record(entity.CaseResult{TestID: tc.TestID, Outcome: entity.OutcomeSkipped, Reason: reasonCancelled})

			continue
		}

		if reason, skip := skipReason(tc); skip {
			logger.Debug("Case skipped", zap.String(logg.TestID, tc.TestID), zap.String(logg.Reason, reason))
			report.Record(entity.CaseResult{TestID: tc.TestID, Outcome: entity.OutcomeSkipped, Reason: reason})

			continue
		}

		if dirty && s.config.InteractConfig.ResetBetweenCases {
			if err := s.open(ctx, doc.Source.URL); err != nil {
				logger.Warn("Reset failed", zap.String(logg.TestID, tc.TestID), zap.Error(err))
				report.Record(entity.CaseResult{
					TestID:  tc.TestID,
					Outcome: entity.OutcomeFailed,
					Reason:  "reset to source page: " + err.Error(),
				})

				continue
			}
		}

		report.Record(s.runCase(ctx, logger, tc))
		dirty = true
	}

	step.SetAttributes(
		attribute.Int("passed", report.Passed),
		attribute.Int("failed", report.Failed),
		attribute.Int("skipped", report.Skipped))
	logger.Info("Run finished",
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))

	return report, nil
}

func (s *RunnerService) runCase(ctx context.Context, logger *zap.Logger, tc entity.TestCase) entity.CaseResult {
	logger = logger.With(zap.String(logg.TestID, tc.TestID), zap.String(logg.Action, string(tc.Action)))

	res := s.executor.Interact(ctx, tc.Target, tc.Action, tc.InputValue)
	if res.Succeeded() {
		logger.Debug("Case passed", zap.String("result_type", res.ResultType))

		return entity.CaseResult{TestID: tc.TestID, Outcome: entity.OutcomePassed, Result: res}
	}

	logger.Info("Case failed", zap.String(logg.Code, res.Code), zap.String(logg.Reason, res.Error))

	return entity.CaseResult{TestID: tc.TestID, Outcome: entity.OutcomeFailed, Reason: res.Error, Result: res}
}

func (s *RunnerService) document(ctx context.Context, req request.Run) (*entity.TestDocument, error) {
	switch {
	case req.Document != nil:
		return req.Document, nil
	case req.RunID != "":
		return s.store.Get(ctx, req.RunID)
	default:
		return s.store.Latest(ctx, req.URL)
	}
}

func (s *RunnerService) open(ctx context.Context, url string) error {
	const op = "open"

	if err := s.engine.Navigate(ctx, url, s.config.BrowserConfig.Timeout); err != nil {
		if apperr.HasCode(err, apperr.CodeTimeout) {
			s.logger.Warn("Navigation timed out, continuing", zap.String(logg.URL, url), zap.Error(err))

			return nil
		}

		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "source_unreachable",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	if err := s.engine.WaitReady(ctx, s.config.ScanConfig.PageReadyTimeout); err != nil {
		s.logger.Debug("Page not ready, continuing", zap.String(logg.URL, url), zap.Error(err))
	}

	return nil
}

func skipReason(tc entity.TestCase) (string, bool) {
	if !tc.Target.State.IsVisible {
		return reasonHidden, true
	}

	if len(tc.Target.Locators) == 0 {
		return reasonReferenceOnly, true
	}

	return "", false
}

// selectCases keeps document order. Every requested id must exist.
func selectCases(doc *entity.TestDocument, ids []string) ([]entity.TestCase, error) {
	const op = "selectCases"

	if len(ids) == 0 {
		return doc.Cases, nil
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := doc.Case(id); !ok {
			return nil, apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("test case %q not in document", id), map[string]any{
				apperr.MetaReason: "unknown_test_id",
				apperr.MetaTestID: id,
			})
		}

		wanted[id] = struct{}{}
	}

	out := make([]entity.TestCase, 0, len(wanted))
	for _, tc := range doc.Cases {
		if _, ok := wanted[tc.TestID]; ok {
			out = append(out, tc)
		}
	}

	if len(out) == 0 {
		return nil, apperr.NotFoundError(op, errors.New("no test cases selected"))
	}

	return out, nil
}
