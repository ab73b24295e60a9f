package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"
	"web-testgen/pkg/tracing"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	maxRetries         = 3
	retryDelay         = 800 * time.Millisecond
	dialogPoll         = 50 * time.Millisecond
)

// Manager drives a single Chromium page through playwright.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool

	dialogMu sync.Mutex
	dialogs  []string
}

var _ ports.Engine = (*Manager)(nil)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Name() string {
	return config.EnginePlaywright
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

	if m.config.BrowserConfig.Install {
		step.AddEvent("installing playwright")

		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return launchError(op, "playwright_install_failed", err)
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return launchError(op, "playwright_start_failed", err)
	}
	m.playwright = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args: []string{
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return launchError(op, "browser_launch_failed", err)
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return launchError(op, "context_create_failed", err)
	}
	m.browserContext = browserContext

	if err := m.ensurePageActive(ctx); err != nil {
		return launchError(op, "page_create_failed", err)
	}

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser...")

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	m.ready = false

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	logger.Info("Browser closed")

	return nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}

// ensurePageActive reattaches to an open page, or opens one, and installs
// the dialog handler on it.
func (m *Manager) ensurePageActive(ctx context.Context) error {
	if m.browserContext == nil {
		return errors.New("browser context is nil")
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.attach(p)
			m.logger.Info("Reconnected to existing page")

			return nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.attach(page)

	return nil
}

func (m *Manager) attach(page playwright.Page) {
	m.page = page

	page.OnDialog(func(d playwright.Dialog) {
		m.dialogMu.Lock()
		m.dialogs = append(m.dialogs, d.Message())
		m.dialogMu.Unlock()

		if err := d.Accept(); err != nil {
			m.logger.Debug("Failed to accept dialog", zap.Error(err))
		}
	})
}

func (m *Manager) activePage(op string) (playwright.Page, error) {
	if !m.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(context.Background()); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	return m.page, nil
}

func (m *Manager) Navigate(ctx context.Context, url string, timeout time.Duration) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return navigationError(op, url, apperr.CodeTimeout, err)
	}

	step.AddEvent("navigating to URL")

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   milliseconds(timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		if isTimeout(err) {
			return navigationError(op, url, apperr.CodeTimeout, err)
		}

		return navigationError(op, url, apperr.CodeUnavailable, err)
	}

	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) WaitReady(ctx context.Context, timeout time.Duration) error {
	const op = "WaitReady"

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	err = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: milliseconds(timeout),
	})
	if err != nil {
		code := apperr.CodeInternal
		if isTimeout(err) {
			code = apperr.CodeTimeout
		}

		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaReason: "load_state_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return ctx.Err()
}

func (m *Manager) CurrentURL(ctx context.Context) (string, error) {
	page, err := m.activePage("CurrentURL")
	if err != nil {
		return "", err
	}

	return page.URL(), nil
}

func (m *Manager) Title(ctx context.Context) (string, error) {
	page, err := m.activePage("Title")
	if err != nil {
		return "", err
	}

	var title string

	err = retry(ctx, func() error {
		var err error
		title, err = page.Title()

		return err
	})

	return title, err
}

// Query returns every element the selector matches, in document order.
func (m *Manager) Query(ctx context.Context, sel ports.Selector) (nodes []ports.Node, err error) {
	const op = "Query"

	page, err := m.activePage(op)
	if err != nil {
		return nil, err
	}

	locators, err := page.Locator(engineSelector(sel)).All()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeMalformedInput, err, map[string]any{
			apperr.MetaReason:   "query_failed",
			apperr.MetaStage:    apperr.StageResolve,
			apperr.MetaSelector: sel.Expr,
		})
	}

	nodes = make([]ports.Node, 0, len(locators))
	for _, loc := range locators {
		nodes = append(nodes, &Node{manager: m, loc: loc})
	}

	return nodes, ctx.Err()
}

func (m *Manager) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("path", path))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	_, err = page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(false),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageObserve,
		})
	}

	return nil
}

// TakeDialog polls the dialog queue filled by the page's dialog handler and
// drains it.
func (m *Manager) TakeDialog(ctx context.Context, wait time.Duration) (string, bool, error) {
	deadline := time.Now().Add(wait)

	for {
		m.dialogMu.Lock()
		if len(m.dialogs) > 0 {
			msg := m.dialogs[0]
			m.dialogs = nil
			m.dialogMu.Unlock()

			return msg, true, nil
		}
		m.dialogMu.Unlock()

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

func (m *Manager) actionTimeout() *float64 {
	return milliseconds(m.config.BrowserConfig.Timeout)
}

// retry runs fn up to maxRetries times, backing off between attempts.
func retry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func engineSelector(sel ports.Selector) string {
	if sel.Kind == ports.SelectorXPath {
		return "xpath=" + sel.Expr
	}

	return "css=" + sel.Expr
}

func milliseconds(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}

	return playwright.Float(float64(d.Milliseconds()))
}

func isTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout) || strings.Contains(err.Error(), "Timeout")
}

func launchError(op, reason string, err error) error {
	return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StageBrowser,
	})
}

func navigationError(op, url, code string, err error) error {
	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason: "goto_failed",
		apperr.MetaStage:  apperr.StageNavigation,
		apperr.MetaURL:    url,
	})
}
