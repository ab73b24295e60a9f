// Package cdp drives Chrome directly over the DevTools protocol.
package cdp

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"
	"web-testgen/pkg/tracing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	Name        = "CDPEngine"
	dialogPoll  = 50 * time.Millisecond
	engineTrace = "cdp.engine"
)

type Engine struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	ready         bool

	dialogMu sync.Mutex
	dialogs  []string
}

var _ ports.Engine = (*Engine)(nil)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewEngine(params Params) *Engine {
	return &Engine{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, Name)),
		tracer: otel.Tracer(engineTrace),
	}
}

func (e *Engine) Name() string {
	return config.EngineChromedp
}

func (e *Engine) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := e.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching Chrome...")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.config.BrowserConfig.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 720),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	chromedp.ListenTarget(browserCtx, e.onEvent(browserCtx))

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()

		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "chrome_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	e.allocCancel = allocCancel
	e.browserCtx = browserCtx
	e.browserCancel = browserCancel
	e.ready = true

	logger.Info("Chrome launched successfully")

	return nil
}

// onEvent records and accepts native dialogs. Dialog handling must not block
// the event loop, so the accept runs on its own goroutine.
func (e *Engine) onEvent(browserCtx context.Context) func(ev interface{}) {
	return func(ev interface{}) {
		opening, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}

		e.dialogMu.Lock()
		e.dialogs = append(e.dialogs, opening.Message)
		e.dialogMu.Unlock()

		go func() {
			if err := chromedp.Run(browserCtx, page.HandleJavaScriptDialog(true)); err != nil {
				e.logger.Debug("Failed to accept dialog", zap.Error(err))
			}
		}()
	}
}

func (e *Engine) Close(ctx context.Context) error {
	e.logger.Info("Closing Chrome...", zap.String(logg.Operation, "Close"))

	e.ready = false

	if e.browserCancel != nil {
		e.browserCancel()
	}

	if e.allocCancel != nil {
		e.allocCancel()
	}

	return nil
}

func (e *Engine) IsReady() bool {
	return e.ready
}

// run executes actions on the tab. The caller's ctx and timeout bound the
// call without closing the tab.
func (e *Engine) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if !e.ready {
		return apperr.WrapErrorWithReason("run", apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	runCtx, cancel := context.WithCancel(e.browserCtx)
	defer cancel()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (e *Engine) Navigate(ctx context.Context, url string, timeout time.Duration) (err error) {
	const op = "Navigate"
	logger := e.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := e.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		code := apperr.CodeUnavailable

		switch {
		case apperr.HasCode(err, apperr.CodeBrowserNotReady):
			return err
		case errors.Is(err, context.DeadlineExceeded):
			code = apperr.CodeTimeout
		}

		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaReason: "navigate_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	return nil
}

func (e *Engine) WaitReady(ctx context.Context, timeout time.Duration) error {
	const op = "WaitReady"

	if err := e.run(ctx, timeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		code := apperr.CodeInternal
		if errors.Is(err, context.DeadlineExceeded) {
			code = apperr.CodeTimeout
		}

		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaReason: "body_not_ready",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

func (e *Engine) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := e.run(ctx, e.config.BrowserConfig.Timeout, chromedp.Location(&url))

	return url, err
}

func (e *Engine) Title(ctx context.Context) (string, error) {
	var title string
	err := e.run(ctx, e.config.BrowserConfig.Timeout, chromedp.Title(&title))

	return title, err
}

// Query matches CSS with querySelectorAll and XPath with DOM search. Zero
// matches is not an error.
func (e *Engine) Query(ctx context.Context, sel ports.Selector) ([]ports.Node, error) {
	const op = "Query"

	by := chromedp.ByQueryAll
	if sel.Kind == ports.SelectorXPath {
		by = chromedp.BySearch
	}

	var nodes []*cdp.Node

	err := e.run(ctx, e.config.BrowserConfig.Timeout,
		chromedp.Nodes(sel.Expr, &nodes, by, chromedp.AtLeast(0)))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeBrowserNotReady) {
			return nil, err
		}

		return nil, apperr.Wrap(op, apperr.CodeMalformedInput, err, map[string]any{
			apperr.MetaReason:   "query_failed",
			apperr.MetaStage:    apperr.StageResolve,
			apperr.MetaSelector: sel.Expr,
		})
	}

	out := make([]ports.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeType != cdp.NodeTypeElement {
			continue
		}

		out = append(out, &Node{engine: e, node: n})
	}

	return out, nil
}

func (e *Engine) Screenshot(ctx context.Context, path string) error {
	const op = "Screenshot"

	var buf []byte
	if err := e.run(ctx, e.config.BrowserConfig.Timeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return screenshotError(op, err)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return screenshotError(op, err)
	}

	return nil
}

func (e *Engine) TakeDialog(ctx context.Context, wait time.Duration) (string, bool, error) {
	deadline := time.Now().Add(wait)

	for {
		e.dialogMu.Lock()
		if len(e.dialogs) > 0 {
			msg := e.dialogs[0]
			e.dialogs = nil
			e.dialogMu.Unlock()

			return msg, true, nil
		}
		e.dialogMu.Unlock()

		if time.Now().After(deadline) {
			return "", false, nil
		}

		select {
		case <-ctx.Done():
			return "", false, nil
		case <-time.After(dialogPoll):
		}
	}
}

func screenshotError(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: "screenshot_failed",
		apperr.MetaStage:  apperr.StageObserve,
	})
}
