package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/entity"
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
	executorName   = "InteractionExecutor"
	executorTracer = "executor"
	pollInterval   = 250 * time.Millisecond
)

var errNoMatch = errors.New("no locator matched a visible element")

type Executor struct {
	engine ports.Engine
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Engine ports.Engine
	Config *config.Config
	Logger *zap.Logger
}

func NewExecutor(params Params) *Executor {
	return &Executor{
		engine: params.Engine,
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, executorName)),
		tracer: otel.Tracer(executorTracer),
	}
}

// Interact resolves target on the live page, performs action and observes
// the outcome. Every failure, including a panic inside the engine, comes back
// as a failed result.
func (x *Executor) Interact(ctx context.Context, target entity.Target, action entity.Action, input *string) (result *entity.InteractionResult) {
	const op = "Interact"
	logger := x.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, string(action)))

	ctx, step := tracing.StartSpan(ctx, x.tracer, logger, op,
		attribute.String("action", string(action)),
		attribute.String("category", string(target.Category)))

	started := time.Now()
	result = &entity.InteractionResult{
		Status:     entity.InteractionFailed,
		Action:     action,
		InputValue: cloneString(input),
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("panic: %v", r), map[string]any{
				apperr.MetaReason: "panic",
				apperr.MetaAction: string(action),
			})
		}

		if err != nil {
			result.Status = entity.InteractionFailed
			result.Code = apperr.CodeOf(err)
			result.Error = err.Error()
			logger.Warn("Interaction failed", zap.String(logg.Code, result.Code), zap.Error(err))
		} else {
			result.Status = entity.InteractionSuccess
		}

		result.DurationMs = time.Since(started).Milliseconds()
		step.End(err)
	}()

	err = x.interact(ctx, logger, step, target, action, input, result)

	return result
}

func (x *Executor) interact(
	ctx context.Context,
	logger *zap.Logger,
	step *tracing.Span,
	target entity.Target,
	action entity.Action,
	input *string,
	result *entity.InteractionResult,
) error {
	const op = "interact"

	if err := validate(target, action, input); err != nil {
		return err
	}

	if !x.engine.IsReady() {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if len(target.Locators) == 0 {
		return apperr.Wrap(op, apperr.CodeNotFound, errors.New("target has no locators"), map[string]any{
			apperr.MetaReason: "reference_only",
			apperr.MetaStage:  apperr.StageResolve,
		})
	}

	if !target.State.IsVisible {
		return apperr.Wrap(op, apperr.CodeNotVisible, errors.New("target was not visible when scanned"), map[string]any{
			apperr.MetaReason: "not_visible",
			apperr.MetaStage:  apperr.StageResolve,
		})
	}

	step.AddEvent("resolving")

	node, loc, err := x.resolve(ctx, target.Locators)
	if err != nil {
		return err
	}

	result.Locator = &loc
	logger = logger.With(zap.String(logg.Selector, loc.Value))

	urlBefore, err := x.engine.CurrentURL(ctx)
	if err != nil {
		return observeError(op, err)
	}

	result.Before = capture(ctx, node)
	result.Screenshots = x.screenshot(ctx, logger, "before", result.Screenshots)

	step.AddEvent("acting")

	resultType, err := act(ctx, node, action, input)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "action_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaAction:   string(action),
			apperr.MetaSelector: loc.Value,
		})
	}

	result.ResultType = resultType

	sleep(ctx, x.config.InteractConfig.SettleWait)
	step.AddEvent("observing")

	effects := &entity.PageEffects{URLBefore: urlBefore}

	msg, ok, err := x.engine.TakeDialog(ctx, x.config.InteractConfig.DialogWait)
	if err != nil {
		logger.Warn("Dialog check failed", zap.Error(err))
	} else if ok {
		effects.Dialog = &entity.Dialog{Message: msg}
	}

	if effects.URLAfter, err = x.engine.CurrentURL(ctx); err != nil {
		return observeError(op, err)
	}

	effects.URLChanged = effects.URLAfter != effects.URLBefore

	if effects.PageTitle, err = x.engine.Title(ctx); err != nil {
		return observeError(op, err)
	}

	result.After = capture(ctx, node)
	result.Effects = effects
	result.Screenshots = x.screenshot(ctx, logger, "after", result.Screenshots)

	logger.Info("Interaction performed",
		zap.String("result_type", resultType),
		zap.Bool("url_changed", effects.URLChanged),
		zap.Bool("dialog", effects.Dialog != nil))

	return nil
}

// resolve polls the locators in priority order until one of them matches a
// visible node or RESOLVE_TIMEOUT passes.
func (x *Executor) resolve(ctx context.Context, locators entity.Locators) (ports.Node, entity.Locator, error) {
	const op = "resolve"

	deadline := time.Now().Add(x.config.InteractConfig.ResolveTimeout)
	hidden := false
	var lastErr error

	for {
		for _, loc := range locators {
			if loc.Value == "" {
				continue
			}

			nodes, err := x.engine.Query(ctx, ports.SelectorFor(loc))
			if err != nil {
				lastErr = err

				continue
			}

			for _, node := range nodes {
				visible, err := node.IsVisible(ctx)
				if err != nil {
					lastErr = err

					continue
				}

				if visible {
					return node, loc, nil
				}

				hidden = true
			}
		}

		if ctx.Err() != nil || !time.Now().Add(pollInterval).Before(deadline) {
			break
		}

		sleep(ctx, pollInterval)
	}

	if hidden {
		return nil, entity.Locator{}, apperr.Wrap(op, apperr.CodeNotVisible, errNoMatch, map[string]any{
			apperr.MetaReason: "not_visible",
			apperr.MetaStage:  apperr.StageResolve,
		})
	}

	cause := errNoMatch
	if lastErr != nil {
		cause = fmt.Errorf("%w: %w", errNoMatch, lastErr)
	}

	return nil, entity.Locator{}, apperr.Wrap(op, apperr.CodeNotFound, cause, map[string]any{
		apperr.MetaReason: "not_found",
		apperr.MetaStage:  apperr.StageResolve,
	})
}

func (x *Executor) screenshot(ctx context.Context, logger *zap.Logger, phase string, shots *entity.Screenshots) *entity.Screenshots {
	dir := x.config.BrowserConfig.ScreenshotDir
	if dir == "" {
		return shots
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("Screenshot dir unavailable", zap.Error(err))

		return shots
	}

	path := filepath.Join(dir, phase+"_"+uuid.NewString()+".png")
	if err := x.engine.Screenshot(ctx, path); err != nil {
		logger.Warn("Screenshot failed", zap.String("phase", phase), zap.Error(err))

		return shots
	}

	if shots == nil {
		shots = &entity.Screenshots{}
	}

	if phase == "before" {
		shots.Before = path
	} else {
		shots.After = path
	}

	return shots
}

// capture reads the node state. A node that went stale after the action
// yields nil rather than a failure.
func capture(ctx context.Context, node ports.Node) *entity.ObservedState {
	var (
		state entity.ObservedState
		err   error
	)

	if state.Text, err = node.Text(ctx); err != nil {
		return nil
	}

	if state.Value, _, err = node.Attribute(ctx, "value"); err != nil {
		return nil
	}

	if value, err := node.InputValue(ctx); err == nil {
		state.Value = value
	}

	if state.Checked, err = node.IsChecked(ctx); err != nil {
		return nil
	}

	if state.Enabled, err = node.IsEnabled(ctx); err != nil {
		return nil
	}

	if state.Displayed, err = node.IsVisible(ctx); err != nil {
		return nil
	}

	if state.Classes, _, err = node.Attribute(ctx, "class"); err != nil {
		return nil
	}

	return &state
}

// Index reports whether a select payload is an option ordinal.
func Index(payload string) (int, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0, false
	}

	for _, r := range payload {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(payload)
	if err != nil {
		return 0, false
	}

	return n, true
}

func observeError(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
		apperr.MetaReason: "observe_failed",
		apperr.MetaStage:  apperr.StageObserve,
	})
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
