package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"web-testgen/internal/ports"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

var (
	errLineageDepth = errors.New("lineage exceeds depth bound")
	errEmptyBox     = errors.New("element has no box model")
)

// Node is a frontend DOM node pushed by a query. Its id is valid until the
// document changes.
type Node struct {
	engine *Engine
	node   *cdp.Node
}

var _ ports.Node = (*Node)(nil)

func (n *Node) TagName(ctx context.Context) (string, error) {
	var tag string
	err := n.call(ctx, &tag, tagNameFunc)

	return tag, err
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value *string
	if err := n.call(ctx, &value, attributeFunc, name); err != nil {
		return "", false, err
	}

	if value == nil {
		return "", false, nil
	}

	return *value, true, nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	var text string
	err := n.call(ctx, &text, textFunc)

	return text, err
}

func (n *Node) InputValue(ctx context.Context) (string, error) {
	var value string
	err := n.call(ctx, &value, valueFunc)

	return value, err
}

func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	return n.callBool(ctx, visibleFunc)
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	return n.callBool(ctx, enabledFunc)
}

func (n *Node) IsChecked(ctx context.Context) (bool, error) {
	return n.callBool(ctx, checkedFunc)
}

func (n *Node) HasClickHandler(ctx context.Context) (bool, error) {
	return n.callBool(ctx, clickHandlerFunc)
}

func (n *Node) Lineage(ctx context.Context, maxDepth int) ([]ports.PathStep, error) {
	var res lineageResult
	if err := n.call(ctx, &res, lineageFunc, maxDepth); err != nil {
		return nil, err
	}

	return res.pathSteps()
}

func (n *Node) Click(ctx context.Context, opts ports.ClickOptions) error {
	var mouse []chromedp.MouseOption

	if opts.Button == ports.ButtonRight {
		mouse = append(mouse, chromedp.ButtonType(input.Right))
	}

	if opts.Count > 1 {
		mouse = append(mouse, chromedp.ClickCount(opts.Count))
	}

	return n.engine.run(ctx, n.engine.config.BrowserConfig.Timeout, chromedp.MouseClickNode(n.node, mouse...))
}

func (n *Node) Hover(ctx context.Context) error {
	return n.engine.run(ctx, n.engine.config.BrowserConfig.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(n.node.NodeID).Do(ctx); err != nil {
			return err
		}

		box, err := dom.GetBoxModel().WithNodeID(n.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}

		x, y, err := quadCenter(box.Content)
		if err != nil {
			return err
		}

		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (n *Node) Clear(ctx context.Context) error {
	return n.engine.run(ctx, n.engine.config.BrowserConfig.Timeout,
		chromedp.Clear(n.ids(), chromedp.ByNodeID))
}

func (n *Node) Fill(ctx context.Context, value string) error {
	actions := []chromedp.Action{chromedp.Clear(n.ids(), chromedp.ByNodeID)}
	if value != "" {
		actions = append(actions, chromedp.SendKeys(n.ids(), value, chromedp.ByNodeID))
	}

	if err := n.engine.run(ctx, n.engine.config.BrowserConfig.Timeout, actions...); err != nil {
		return err
	}

	return n.call(ctx, nil, changedFunc)
}

func (n *Node) SelectIndex(ctx context.Context, index int) error {
	return n.call(ctx, nil, selectIndexFunc, index)
}

func (n *Node) SelectText(ctx context.Context, text string) error {
	return n.call(ctx, nil, selectTextFunc, text)
}

func (n *Node) ids() []cdp.NodeID {
	return []cdp.NodeID{n.node.NodeID}
}

func (n *Node) callBool(ctx context.Context, fn string) (bool, error) {
	var b bool
	err := n.call(ctx, &b, fn)

	return b, err
}

// call invokes fn with this bound to the node and decodes the returned value
// into out. A nil out discards the result.
func (n *Node) call(ctx context.Context, out any, fn string, args ...any) error {
	decl, err := bindArgs(fn, args...)
	if err != nil {
		return err
	}

	return n.engine.run(ctx, n.engine.config.BrowserConfig.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}

		res, exc, err := runtime.CallFunctionOn(decl).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}

		if exc != nil {
			return fmt.Errorf("script exception: %s", exceptionText(exc))
		}

		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}

		return json.Unmarshal(res.Value, out)
	}))
}

// bindArgs wraps fn in a zero-argument declaration that applies the JSON
// encoded arguments.
func bindArgs(fn string, args ...any) (string, error) {
	if len(args) == 0 {
		return fn, nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode script arguments: %w", err)
	}

	return "function() { return (" + fn + ").apply(this, " + string(raw) + "); }", nil
}

func exceptionText(exc *runtime.ExceptionDetails) string {
	if exc.Exception != nil && exc.Exception.Description != "" {
		return exc.Exception.Description
	}

	return exc.Text
}

type lineageResult struct {
	Steps []struct {
		Tag   string `json:"tag"`
		Index int    `json:"index"`
	} `json:"steps"`
	Truncated bool `json:"truncated"`
}

func (r lineageResult) pathSteps() ([]ports.PathStep, error) {
	if r.Truncated {
		return nil, errLineageDepth
	}

	steps := make([]ports.PathStep, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, ports.PathStep{Tag: s.Tag, Index: s.Index})
	}

	return steps, nil
}

// quadCenter averages the four corners of a box model quad.
func quadCenter(quad dom.Quad) (float64, float64, error) {
	if len(quad) < 8 {
		return 0, 0, errEmptyBox
	}

	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += quad[i]
		y += quad[i+1]
	}

	return x / 4, y / 4, nil
}
