package browser

import (
	"context"
	"errors"
	"fmt"
	"web-testgen/internal/ports"

	"github.com/playwright-community/playwright-go"
)

var errLineageDepth = errors.New("lineage exceeds depth bound")

// Node is one element matched by a playwright locator.
type Node struct {
	manager *Manager
	loc     playwright.Locator
}

var _ ports.Node = (*Node)(nil)

func (n *Node) TagName(ctx context.Context) (string, error) {
	return n.evalString(ctx, tagNameScript, nil)
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	res, err := n.loc.Evaluate(attributeScript, name)
	if err != nil {
		return "", false, err
	}

	if res == nil {
		return "", false, nil
	}

	return fmt.Sprint(res), true, nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	return n.evalString(ctx, textScript, nil)
}

func (n *Node) InputValue(ctx context.Context) (string, error) {
	return n.evalString(ctx, valueScript, nil)
}

func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return n.loc.IsVisible()
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return n.loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: n.manager.actionTimeout()})
}

func (n *Node) IsChecked(ctx context.Context) (bool, error) {
	return n.evalBool(ctx, checkedScript)
}

func (n *Node) HasClickHandler(ctx context.Context) (bool, error) {
	return n.evalBool(ctx, clickHandlerScript)
}

func (n *Node) Lineage(ctx context.Context, maxDepth int) ([]ports.PathStep, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := n.loc.Evaluate(lineageScript, maxDepth)
	if err != nil {
		return nil, err
	}

	return parseLineage(res)
}

func (n *Node) Click(ctx context.Context, opts ports.ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := n.manager.actionTimeout()

	switch {
	case opts.Button == ports.ButtonRight:
		return n.loc.Click(playwright.LocatorClickOptions{
			Button:  playwright.MouseButtonRight,
			Timeout: timeout,
		})
	case opts.Count == 2:
		return n.loc.Dblclick(playwright.LocatorDblclickOptions{Timeout: timeout})
	case opts.Count > 2:
		return n.loc.Click(playwright.LocatorClickOptions{
			ClickCount: playwright.Int(opts.Count),
			Timeout:    timeout,
		})
	default:
		return n.loc.Click(playwright.LocatorClickOptions{Timeout: timeout})
	}
}

func (n *Node) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return n.loc.Hover(playwright.LocatorHoverOptions{Timeout: n.manager.actionTimeout()})
}

func (n *Node) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return n.loc.Clear(playwright.LocatorClearOptions{Timeout: n.manager.actionTimeout()})
}

func (n *Node) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return n.loc.Fill(value, playwright.LocatorFillOptions{Timeout: n.manager.actionTimeout()})
}

func (n *Node) SelectIndex(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := n.loc.SelectOption(playwright.SelectOptionValues{Indexes: &[]int{index}},
		playwright.LocatorSelectOptionOptions{Timeout: n.manager.actionTimeout()})

	return err
}

func (n *Node) SelectText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := n.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{text}},
		playwright.LocatorSelectOptionOptions{Timeout: n.manager.actionTimeout()})

	return err
}

func (n *Node) evalString(ctx context.Context, script string, arg any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := n.loc.Evaluate(script, arg)
	if err != nil {
		return "", err
	}

	return getString(res), nil
}

func (n *Node) evalBool(ctx context.Context, script string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	res, err := n.loc.Evaluate(script, nil)
	if err != nil {
		return false, err
	}

	b, _ := res.(bool)

	return b, nil
}

// parseLineage decodes the lineage script's {steps, truncated} result.
func parseLineage(res any) ([]ports.PathStep, error) {
	m, ok := res.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected lineage result %T", res)
	}

	if getBool(m, "truncated") {
		return nil, errLineageDepth
	}

	raw, _ := m["steps"].([]interface{})
	steps := make([]ports.PathStep, 0, len(raw))

	for _, item := range raw {
		step, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected lineage step %T", item)
		}

		steps = append(steps, ports.PathStep{
			Tag:   getString(step["tag"]),
			Index: getInt(step, "index"),
		})
	}

	return steps, nil
}

func getString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}

	return 0
}
