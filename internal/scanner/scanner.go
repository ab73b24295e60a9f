package scanner

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"
	"unicode/utf8"
	"web-testgen/internal/classify"
	"web-testgen/internal/config"
	"web-testgen/internal/entity"
	"web-testgen/internal/locator"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"
	"web-testgen/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	scannerName   = "PageScanner"
	scannerTracer = "scanner"
)

type Scanner struct {
	engine ports.Engine
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

type Params struct {
	fx.In

	Engine ports.Engine
	Config *config.Config
	Logger *zap.Logger
}

func NewScanner(params Params) *Scanner {
	return &Scanner{
		engine: params.Engine,
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, scannerName)),
		tracer: otel.Tracer(scannerTracer),
		now:    time.Now,
	}
}

// Scan loads url and returns the inventory of interactive elements on it.
// Navigation failures and broken nodes are reported inside the result; only
// a session that is not running is returned as an error.
func (s *Scanner) Scan(ctx context.Context, url string) (result *entity.ScanResult, err error) {
	const op = "Scan"
	runID := uuid.NewString()
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url), zap.String(logg.RunID, runID))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("url", url),
		attribute.String("run_id", runID))
	defer func() {
		step.End(err)
	}()

	if !s.engine.IsReady() {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, fmt.Errorf("%s engine is not running", s.engine.Name()), map[string]any{
			apperr.MetaReason: "browser_not_ready",
			apperr.MetaStage:  apperr.StageScan,
		})
	}

	result = &entity.ScanResult{
		RunID:    runID,
		Status:   entity.ScanStatusOK,
		Source:   entity.Source{URL: url, Timestamp: s.now().UTC().Truncate(time.Millisecond)},
		Elements: make([]entity.Element, 0),
	}

	logger.Info("Scanning page")

	if err := s.engine.Navigate(ctx, url, s.config.BrowserConfig.Timeout); err != nil {
		if !apperr.HasCode(err, apperr.CodeTimeout) {
			logger.Warn("Target unreachable", zap.Error(err))
			result.Status = entity.ScanStatusFailed
			result.Code = apperr.CodeOf(err)
			result.Error = err.Error()

			return result, nil
		}

		if current, urlErr := s.engine.CurrentURL(ctx); urlErr != nil || !samePage(current, url) {
			logger.Warn("Navigation timed out before leaving the previous page",
				zap.String("current_url", current), zap.Error(err))
			result.Status = entity.ScanStatusFailed
			result.Code = apperr.CodeTimeout
			result.Error = fmt.Sprintf("navigation timed out before reaching the target page: %v", err)

			return result, nil
		}

		logger.Warn("Navigation timed out, scanning partial DOM", zap.Error(err))
		result.Warnings = append(result.Warnings, "navigation timed out: "+err.Error())
	}

	if err := s.engine.WaitReady(ctx, s.config.ScanConfig.PageReadyTimeout); err != nil {
		logger.Warn("Page not ready, scanning partial DOM", zap.Error(err))
		result.Warnings = append(result.Warnings, "page ready wait: "+err.Error())
	}

	if wait := s.config.ScanConfig.SettleWait; wait > 0 {
		step.AddEvent("settling")
		sleep(ctx, wait)
	}

	if title, err := s.engine.Title(ctx); err != nil {
		result.Warnings = append(result.Warnings, "page title: "+err.Error())
	} else {
		result.Source.PageTitle = title
	}

	s.collect(ctx, logger, result)

	if len(result.Skipped) > 0 || len(result.Warnings) > 0 {
		result.Status = entity.ScanStatusPartial
	}

	step.SetAttributes(
		attribute.Int("elements", len(result.Elements)),
		attribute.Int("skipped", len(result.Skipped)))
	logger.Info("Scan finished",
		zap.String("status", string(result.Status)),
		zap.Int("elements", len(result.Elements)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

func (s *Scanner) collect(ctx context.Context, logger *zap.Logger, result *entity.ScanResult) {
	seen := make(map[string]struct{})

	for _, cs := range classify.Selectors() {
		nodes, err := s.engine.Query(ctx, ports.CSS(cs.CSS))
		if err != nil {
			logger.Warn("Category query failed", zap.String(logg.Category, string(cs.Category)), zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("query %s: %v", cs.Category, err))

			continue
		}

		for i, node := range nodes {
			element, ok, err := extract(ctx, node)
			if err != nil {
				logger.Warn("Skipping element",
					zap.String(logg.Category, string(cs.Category)),
					zap.Int("index", i),
					zap.String(logg.Code, apperr.CodePartialExtraction),
					zap.Error(err))
				result.Skipped = append(result.Skipped, entity.ExtractionFailure{
					Category: cs.Category,
					Index:    i,
					Reason:   err.Error(),
				})

				continue
			}

			if !ok {
				continue
			}

			if key := nodeKey(element); key != "" {
				if _, dup := seen[key]; dup {
					continue
				}

				seen[key] = struct{}{}
			}

			result.Elements = append(result.Elements, element)
		}
	}
}

// extract reads one node. ok is false when the node is not interactive.
func extract(ctx context.Context, node ports.Node) (entity.Element, bool, error) {
	const op = "extract"

	tag, err := node.TagName(ctx)
	if err != nil {
		return entity.Element{}, false, extractionError(op, "tag_name", err)
	}

	tag = strings.ToLower(tag)

	attrs := make(map[string]string, len(entity.AttributeAllowlist))
	for _, name := range entity.AttributeAllowlist {
		value, ok, err := node.Attribute(ctx, name)
		if err != nil {
			return entity.Element{}, false, extractionError(op, "attribute_"+name, err)
		}

		if ok {
			attrs[name] = value
		}
	}

	hasClick, err := node.HasClickHandler(ctx)
	if err != nil {
		return entity.Element{}, false, extractionError(op, "click_handler", err)
	}

	category, ok := classify.Classify(classify.Hints{
		Tag:             tag,
		Type:            attrs["type"],
		Href:            attrs["href"],
		Role:            attrs["role"],
		HasClickHandler: hasClick,
	})
	if !ok {
		return entity.Element{}, false, nil
	}

	identity := make(map[string]string, 3)
	for _, name := range []string{"id", "name", "class"} {
		value, _, err := node.Attribute(ctx, name)
		if err != nil {
			return entity.Element{}, false, extractionError(op, "attribute_"+name, err)
		}

		identity[name] = strings.TrimSpace(value)
	}

	text, err := node.Text(ctx)
	if err != nil {
		return entity.Element{}, false, extractionError(op, "text", err)
	}

	visible, err := node.IsVisible(ctx)
	if err != nil {
		return entity.Element{}, false, extractionError(op, "visibility", err)
	}

	enabled, err := node.IsEnabled(ctx)
	if err != nil {
		return entity.Element{}, false, extractionError(op, "enabled", err)
	}

	if len(attrs) == 0 {
		attrs = nil
	}

	return entity.Element{
		Tag:        tag,
		Category:   category,
		ID:         identity["id"],
		Name:       identity["name"],
		Classes:    strings.Fields(identity["class"]),
		Text:       truncate(strings.TrimSpace(text), entity.MaxTextLength),
		Locators:   locator.Build(ctx, node),
		State:      entity.NewElementState(visible, enabled),
		Attributes: attrs,
	}, true, nil
}

// samePage reports whether two URLs address the same document, ignoring the
// fragment and the difference between an empty path and "/".
func samePage(a, b string) bool {
	ua, errA := neturl.Parse(a)
	ub, errB := neturl.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}

	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		pagePath(ua) == pagePath(ub) &&
		ua.RawQuery == ub.RawQuery
}

func pagePath(u *neturl.URL) string {
	if u.Path == "" {
		return "/"
	}

	return u.Path
}

// nodeKey identifies a node across category queries. Elements without a
// structural path or id are never merged.
func nodeKey(e entity.Element) string {
	if loc, ok := e.Locators.ByStrategy(entity.StrategyXPath); ok {
		return loc.Value
	}

	if loc, ok := e.Locators.ByStrategy(entity.StrategyID); ok {
		return loc.Value
	}

	return ""
}

func extractionError(op, field string, err error) error {
	return apperr.Wrap(op, apperr.CodePartialExtraction, fmt.Errorf("%s: %w", field, err), map[string]any{
		apperr.MetaReason: "extraction_failed",
		apperr.MetaStage:  apperr.StageExtraction,
		apperr.MetaField:  field,
	})
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit])
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
