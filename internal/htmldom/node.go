package htmldom

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"web-testgen/internal/ports"
	"web-testgen/pkg/logg"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	errDisabled     = errors.New("element is disabled")
	errNotEditable  = errors.New("element is not an editable field")
	errNotSelect    = errors.New("element is not a <select>")
	errLineageDepth = errors.New("lineage exceeds depth bound")

	dialogCall = regexp.MustCompile(`\b(?:window\.)?(alert|confirm|prompt)\s*\(\s*(?:'([^']*)'|"([^"]*)")`)
	hrefAssign = regexp.MustCompile(`\b(?:window\.)?location(?:\.href)?\s*=\s*(?:'([^']*)'|"([^"]*)")`)
)

type Node struct {
	engine *Engine
	n      *html.Node
}

func (n *Node) TagName(ctx context.Context) (string, error) {
	return n.n.Data, nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := attr(n.n, name)

	return value, ok, nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	switch n.n.Data {
	case "input", "select", "textarea":
		return "", nil
	}

	return normalizeSpace(htmlquery.InnerText(n.n)), nil
}

func (n *Node) InputValue(ctx context.Context) (string, error) {
	switch n.n.Data {
	case "input":
		value, _ := attr(n.n, "value")

		return value, nil
	case "textarea":
		return htmlquery.InnerText(n.n), nil
	case "select":
		opt := selectedOption(n.n)
		if opt == nil {
			return "", nil
		}

		return optionValue(opt), nil
	}

	return "", fmt.Errorf("<%s> has no input value", n.n.Data)
}

// IsVisible approximates computed visibility from markup: the hidden
// attribute, hidden inputs, non-rendered tags and inline display/visibility
// styles on the node or any ancestor.
func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	if n.n.Data == "input" {
		if t, _ := attr(n.n, "type"); strings.EqualFold(t, "hidden") {
			return false, nil
		}
	}

	for cur := n.n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		switch cur.Data {
		case "head", "script", "style", "template", "noscript":
			return false, nil
		}

		if _, ok := attr(cur, "hidden"); ok {
			return false, nil
		}

		if style, ok := attr(cur, "style"); ok && hiddenByStyle(style) {
			return false, nil
		}
	}

	return true, nil
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	_, disabled := attr(n.n, "disabled")

	return !disabled, nil
}

func (n *Node) IsChecked(ctx context.Context) (bool, error) {
	switch n.n.Data {
	case "option":
		_, ok := attr(n.n, "selected")

		return ok, nil
	default:
		_, ok := attr(n.n, "checked")

		return ok, nil
	}
}

func (n *Node) HasClickHandler(ctx context.Context) (bool, error) {
	_, ok := attr(n.n, "onclick")

	return ok, nil
}

func (n *Node) Lineage(ctx context.Context, maxDepth int) ([]ports.PathStep, error) {
	steps := make([]ports.PathStep, 0, 8)

	for cur := n.n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if len(steps) == maxDepth {
			return nil, errLineageDepth
		}

		steps = append(steps, ports.PathStep{Tag: cur.Data, Index: siblingIndex(cur)})
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}

	return steps, nil
}

// Click runs the inline handler for the pointer gesture, then the default
// action of a left click: toggling checkboxes, picking radios and following
// links.
func (n *Node) Click(ctx context.Context, opts ports.ClickOptions) error {
	if err := n.requireEnabled(); err != nil {
		return err
	}

	if opts.Button == ports.ButtonRight {
		return n.fire(ctx, "oncontextmenu")
	}

	count := opts.Count
	if count < 1 {
		count = 1
	}

	for i := 0; i < count; i++ {
		if err := n.leftClick(ctx); err != nil {
			return err
		}
	}

	if count == 2 {
		return n.fire(ctx, "ondblclick")
	}

	return nil
}

func (n *Node) Hover(ctx context.Context) error {
	if err := n.fire(ctx, "onmouseover"); err != nil {
		return err
	}

	return n.fire(ctx, "onmouseenter")
}

func (n *Node) Clear(ctx context.Context) error {
	return n.Fill(ctx, "")
}

func (n *Node) Fill(ctx context.Context, value string) error {
	if err := n.requireEnabled(); err != nil {
		return err
	}

	if _, ok := attr(n.n, "readonly"); ok {
		return errNotEditable
	}

	switch n.n.Data {
	case "textarea":
		for c := n.n.FirstChild; c != nil; {
			next := c.NextSibling
			n.n.RemoveChild(c)
			c = next
		}

		if value != "" {
			n.n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		}
	case "input":
		t, _ := attr(n.n, "type")
		switch strings.ToLower(t) {
		case "checkbox", "radio", "button", "submit", "reset", "file", "hidden", "image":
			return errNotEditable
		}

		setAttr(n.n, "value", value)
	default:
		return errNotEditable
	}

	if err := n.fire(ctx, "oninput"); err != nil {
		return err
	}

	return n.fire(ctx, "onchange")
}

func (n *Node) SelectIndex(ctx context.Context, index int) error {
	options, err := n.options()
	if err != nil {
		return err
	}

	if index < 0 || index >= len(options) {
		return fmt.Errorf("option index %d out of range [0,%d)", index, len(options))
	}

	return n.choose(ctx, options, options[index])
}

func (n *Node) SelectText(ctx context.Context, text string) error {
	options, err := n.options()
	if err != nil {
		return err
	}

	want := normalizeSpace(text)
	for _, opt := range options {
		if normalizeSpace(htmlquery.InnerText(opt)) == want {
			return n.choose(ctx, options, opt)
		}
	}

	return fmt.Errorf("no option with text %q", text)
}

func (n *Node) leftClick(ctx context.Context) error {
	if err := n.fire(ctx, "onclick"); err != nil {
		return err
	}

	if n.n.Data == "input" {
		t, _ := attr(n.n, "type")
		switch strings.ToLower(t) {
		case "checkbox":
			if _, ok := attr(n.n, "checked"); ok {
				removeAttr(n.n, "checked")
			} else {
				setAttr(n.n, "checked", "")
			}

			return n.fire(ctx, "onchange")
		case "radio":
			return n.checkRadio(ctx)
		}

		return nil
	}

	if href, ok := n.link(); ok {
		return n.follow(ctx, href)
	}

	return nil
}

func (n *Node) link() (string, bool) {
	for cur := n.n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur.Data == "a" {
			href, ok := attr(cur, "href")
			href = strings.TrimSpace(href)

			return href, ok && href != "" && !strings.HasPrefix(strings.ToLower(href), "javascript:")
		}
	}

	return "", false
}

// follow navigates like a browser would: a failed load leaves the URL
// changed on an empty page instead of failing the click.
func (n *Node) follow(ctx context.Context, href string) error {
	e := n.engine

	if err := e.Navigate(ctx, href, e.config.BrowserConfig.Timeout); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		target, resolveErr := e.resolve(href)
		if resolveErr != nil {
			return err
		}

		e.logger.Warn("Link target failed to load", zap.String(logg.URL, target.String()), zap.Error(err))
		e.doc = emptyDocument()
		e.url = target.String()
	}

	return nil
}

func (n *Node) checkRadio(ctx context.Context) error {
	name, _ := attr(n.n, "name")
	if name != "" {
		group, _ := htmlquery.QueryAll(n.engine.doc, "//input")
		for _, other := range group {
			t, _ := attr(other, "type")
			otherName, _ := attr(other, "name")
			if strings.EqualFold(t, "radio") && otherName == name {
				removeAttr(other, "checked")
			}
		}
	}

	setAttr(n.n, "checked", "")

	return n.fire(ctx, "onchange")
}

func (n *Node) options() ([]*html.Node, error) {
	if n.n.Data != "select" {
		return nil, errNotSelect
	}

	if err := n.requireEnabled(); err != nil {
		return nil, err
	}

	return htmlquery.QueryAll(n.n, ".//option")
}

func (n *Node) choose(ctx context.Context, options []*html.Node, chosen *html.Node) error {
	for _, opt := range options {
		removeAttr(opt, "selected")
	}

	setAttr(chosen, "selected", "")

	return n.fire(ctx, "onchange")
}

func (n *Node) requireEnabled() error {
	if _, disabled := attr(n.n, "disabled"); disabled {
		return errDisabled
	}

	return nil
}

// fire runs the small subset of inline handler code the engine understands:
// alert/confirm/prompt calls and location assignments.
func (n *Node) fire(ctx context.Context, handler string) error {
	code, ok := attr(n.n, handler)
	if !ok {
		return nil
	}

	for _, m := range dialogCall.FindAllStringSubmatch(code, -1) {
		n.engine.raiseDialog(m[2] + m[3])
	}

	if m := hrefAssign.FindStringSubmatch(code); m != nil {
		return n.follow(ctx, m[1]+m[2])
	}

	return nil
}

func selectedOption(sel *html.Node) *html.Node {
	options, _ := htmlquery.QueryAll(sel, ".//option")
	if len(options) == 0 {
		return nil
	}

	for _, opt := range options {
		if _, ok := attr(opt, "selected"); ok {
			return opt
		}
	}

	return options[0]
}

func optionValue(opt *html.Node) string {
	if value, ok := attr(opt, "value"); ok {
		return value
	}

	return normalizeSpace(htmlquery.InnerText(opt))
}

func siblingIndex(n *html.Node) int {
	index := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			index++
		}
	}

	return index
}

func hiddenByStyle(style string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(style), ""))

	return strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden")
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}

	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value

			return
		}
	}

	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if !(a.Namespace == "" && strings.EqualFold(a.Key, name)) {
			kept = append(kept, a)
		}
	}

	n.Attr = kept
}
