package ports

import (
	"context"
	"time"
	"web-testgen/internal/entity"
)

type SelectorKind string

const (
	SelectorCSS   SelectorKind = "css"
	SelectorXPath SelectorKind = "xpath"
)

type Selector struct {
	Kind SelectorKind
	Expr string
}

func CSS(expr string) Selector {
	return Selector{Kind: SelectorCSS, Expr: expr}
}

func XPath(expr string) Selector {
	return Selector{Kind: SelectorXPath, Expr: expr}
}

// SelectorFor maps a stored locator onto an engine query. ID and XPath
// strategies both carry XPath expressions.
func SelectorFor(loc entity.Locator) Selector {
	if loc.Strategy == entity.StrategyCSS {
		return CSS(loc.Value)
	}

	return XPath(loc.Value)
}

// PathStep is one level of a node's ancestry. Index counts same-tag siblings
// from 1.
type PathStep struct {
	Tag   string
	Index int
}

type MouseButton string

const (
	ButtonLeft  MouseButton = "left"
	ButtonRight MouseButton = "right"
)

type ClickOptions struct {
	Button MouseButton
	Count  int
}

// Engine is one browsing session. Implementations are not safe for
// concurrent use; callers serialize access.
type Engine interface {
	Name() string
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitReady(ctx context.Context, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Query(ctx context.Context, sel Selector) ([]Node, error)
	Screenshot(ctx context.Context, path string) error
	// TakeDialog waits up to wait for a native dialog opened since the last
	// call. The engine has already accepted it.
	TakeDialog(ctx context.Context, wait time.Duration) (string, bool, error)
}

// Node is a live handle to one element on the current page.
type Node interface {
	TagName(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	InputValue(ctx context.Context) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsChecked(ctx context.Context) (bool, error)
	HasClickHandler(ctx context.Context) (bool, error)
	// Lineage returns the ancestry root first, ending with the node itself.
	// It stops after maxDepth steps.
	Lineage(ctx context.Context, maxDepth int) ([]PathStep, error)

	Click(ctx context.Context, opts ClickOptions) error
	Hover(ctx context.Context) error
	Clear(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	SelectIndex(ctx context.Context, index int) error
	SelectText(ctx context.Context, text string) error
}

type PageScanner interface {
	Scan(ctx context.Context, url string) (*entity.ScanResult, error)
}

type InteractionExecutor interface {
	Interact(ctx context.Context, target entity.Target, action entity.Action, input *string) *entity.InteractionResult
}

type DocumentStore interface {
	Save(ctx context.Context, doc *entity.TestDocument) error
	Latest(ctx context.Context, url string) (*entity.TestDocument, error)
	Get(ctx context.Context, runID string) (*entity.TestDocument, error)
	List(ctx context.Context, limit int) ([]DocumentSummary, error)
	Close() error
}

type DocumentSummary struct {
	RunID     string    `json:"run_id"     yaml:"run_id"`
	URL       string    `json:"url"        yaml:"url"`
	PageTitle string    `json:"page_title" yaml:"page_title"`
	Cases     int       `json:"cases"      yaml:"cases"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
