// Package htmldom is a browsing engine over a parsed HTML document. It runs
// without a browser: pages are fetched over http(s) or read from disk, and
// clicks, typing and dialogs are simulated on the in-memory tree.
package htmldom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"
	"web-testgen/pkg/tracing"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	engineName   = "StaticEngine"
	engineTracer = "htmldom.engine"
	maxBodyBytes = 16 << 20
)

type Engine struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	client  *http.Client
	doc     *html.Node
	url     string
	dialogs []string
	ready   bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewEngine(params Params) *Engine {
	return &Engine{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, engineName)),
		tracer: otel.Tracer(engineTracer),
		client: &http.Client{},
	}
}

func (e *Engine) Name() string {
	return config.EngineStatic
}

func (e *Engine) Launch(ctx context.Context) error {
	e.logger.Info("Static engine ready")
	e.doc = emptyDocument()
	e.url = "about:blank"
	e.ready = true

	return nil
}

func (e *Engine) Close(ctx context.Context) error {
	e.ready = false
	e.doc = nil
	e.dialogs = nil
	e.client.CloseIdleConnections()

	return nil
}

func (e *Engine) IsReady() bool {
	return e.ready
}

func (e *Engine) Navigate(ctx context.Context, rawURL string, timeout time.Duration) (err error) {
	const op = "Navigate"
	logger := e.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, rawURL))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op, attribute.String("url", rawURL))
	defer func() {
		step.End(err)
	}()

	if !e.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	target, err := e.resolve(rawURL)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeMalformedInput, err, map[string]any{
			apperr.MetaReason: "invalid_url",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    rawURL,
		})
	}

	if sameDocument(e.url, target) {
		e.url = target.String()
		step.AddEvent("fragment navigation")

		return nil
	}

	doc, err := e.load(ctx, target, timeout)
	if err != nil {
		code := apperr.CodeUnavailable
		if isTimeout(err) {
			code = apperr.CodeTimeout
			// The page was left, so nothing of the previous one stays queryable.
			e.doc = emptyDocument()
			e.url = target.String()
		}

		return apperr.Wrap(op, code, err, map[string]any{
			apperr.MetaReason: "load_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    rawURL,
		})
	}

	e.doc = doc
	e.url = target.String()
	step.AddEvent("navigation completed")

	return nil
}

// LoadHTML replaces the current document with markup as if it had been
// served from rawURL.
func (e *Engine) LoadHTML(rawURL, markup string) error {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return apperr.Wrap("LoadHTML", apperr.CodeMalformedInput, err, map[string]any{
			apperr.MetaReason: "parse_failed",
			apperr.MetaURL:    rawURL,
		})
	}

	e.doc = doc
	e.url = rawURL
	e.dialogs = nil
	e.ready = true

	return nil
}

func (e *Engine) WaitReady(ctx context.Context, timeout time.Duration) error {
	if !e.ready {
		return apperr.WrapErrorWithReason("WaitReady", apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	return ctx.Err()
}

func (e *Engine) CurrentURL(ctx context.Context) (string, error) {
	if !e.ready {
		return "", apperr.WrapErrorWithReason("CurrentURL", apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	return e.url, nil
}

func (e *Engine) Title(ctx context.Context) (string, error) {
	if !e.ready {
		return "", apperr.WrapErrorWithReason("Title", apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	title := htmlquery.FindOne(e.doc, "//head/title")
	if title == nil {
		return "", nil
	}

	return normalizeSpace(htmlquery.InnerText(title)), nil
}

func (e *Engine) Query(ctx context.Context, sel ports.Selector) (nodes []ports.Node, err error) {
	const op = "Query"

	if !e.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	var found []*html.Node

	switch sel.Kind {
	case ports.SelectorCSS:
		group, err := cascadia.ParseGroup(sel.Expr)
		if err != nil {
			return nil, invalidSelector(op, sel, err)
		}

		found = cascadia.QueryAll(e.doc, group)
	case ports.SelectorXPath:
		found, err = htmlquery.QueryAll(e.doc, sel.Expr)
		if err != nil {
			return nil, invalidSelector(op, sel, err)
		}
	default:
		return nil, invalidSelector(op, sel, fmt.Errorf("unknown selector kind %q", sel.Kind))
	}

	nodes = make([]ports.Node, 0, len(found))
	for _, n := range found {
		if n.Type == html.ElementNode {
			nodes = append(nodes, &Node{engine: e, n: n})
		}
	}

	return nodes, nil
}

// Screenshot writes the serialized DOM, which is the closest thing to a
// rendering this engine has.
func (e *Engine) Screenshot(ctx context.Context, path string) error {
	const op = "Screenshot"

	if !e.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageObserve,
		})
	}
	defer f.Close()

	if err := html.Render(f, e.doc); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageObserve,
		})
	}

	return nil
}

// TakeDialog returns the first dialog raised since the previous call and
// drops the rest. Dialogs are raised synchronously by clicks, so there is
// nothing to wait for.
func (e *Engine) TakeDialog(ctx context.Context, wait time.Duration) (string, bool, error) {
	if len(e.dialogs) == 0 {
		return "", false, nil
	}

	msg := e.dialogs[0]
	e.dialogs = nil

	return msg, true, nil
}

func (e *Engine) raiseDialog(msg string) {
	e.logger.Debug("Dialog accepted", zap.String("message", msg))
	e.dialogs = append(e.dialogs, msg)
}

func (e *Engine) resolve(rawURL string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}

	if ref.IsAbs() {
		return ref, nil
	}

	base, err := url.Parse(e.url)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("relative url %q without a base", rawURL)
	}

	return base.ResolveReference(ref), nil
}

func (e *Engine) load(ctx context.Context, target *url.URL, timeout time.Duration) (*html.Node, error) {
	switch target.Scheme {
	case "http", "https":
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			e.logger.Warn("Page answered with error status", zap.Int("status", resp.StatusCode))
		}

		return htmlquery.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	case "file":
		return htmlquery.LoadDoc(target.Path)
	case "about":
		return emptyDocument(), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", target.Scheme)
	}
}

func sameDocument(current string, target *url.URL) bool {
	cur, err := url.Parse(current)
	if err != nil || target.Fragment == "" {
		return false
	}

	a, b := *cur, *target
	a.Fragment, b.Fragment = "", ""
	a.RawFragment, b.RawFragment = "", ""

	return a.String() == b.String()
}

func emptyDocument() *html.Node {
	doc, _ := html.Parse(strings.NewReader(""))

	return doc
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func invalidSelector(op string, sel ports.Selector, err error) error {
	return apperr.Wrap(op, apperr.CodeMalformedInput, err, map[string]any{
		apperr.MetaReason:   "invalid_selector",
		apperr.MetaSelector: sel.Expr,
	})
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
