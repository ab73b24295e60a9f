// Package locator derives the ordered locator set used to find a node again.
package locator

import (
	"context"
	"strconv"
	"strings"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
)

// MaxDepth bounds the ancestry walk for the structural path.
const MaxDepth = 64

// Build returns every locator that can be computed for node, in the order
// id, structural path, CSS. It never fails: a strategy that errors is
// dropped, and the tag name alone is the last resort.
func Build(ctx context.Context, node ports.Node) entity.Locators {
	id := attribute(ctx, node, "id")
	tag := tagName(ctx, node)

	var path []ports.PathStep
	if steps, err := node.Lineage(ctx, MaxDepth+1); err == nil {
		path = steps
	}

	return FromParts(id, tag, classList(attribute(ctx, node, "class")), path)
}

// FromParts assembles locators from already extracted node data.
func FromParts(id, tag string, classes []string, path []ports.PathStep) entity.Locators {
	out := make(entity.Locators, 0, 3)

	if expr := IDXPath(id); expr != "" {
		out = append(out, entity.Locator{Strategy: entity.StrategyID, Value: expr})
	}

	if expr := StructuralPath(path); expr != "" {
		out = append(out, entity.Locator{Strategy: entity.StrategyXPath, Value: expr})
	}

	if expr := CSS(id, tag, classes); expr != "" {
		out = append(out, entity.Locator{Strategy: entity.StrategyCSS, Value: expr})
	}

	return out
}

// IDXPath is an id-equality XPath expression, or "" for an empty id.
func IDXPath(id string) string {
	if id == "" {
		return ""
	}

	return "//*[@id=" + xpathLiteral(id) + "]"
}

// StructuralPath renders a root-first lineage as /html/body/div[2]/button[1].
// html and body are written without an index. A lineage that does not start
// at html or exceeds MaxDepth yields "".
func StructuralPath(path []ports.PathStep) string {
	if len(path) == 0 || len(path) > MaxDepth {
		return ""
	}

	if strings.ToLower(path[0].Tag) != "html" {
		return ""
	}

	var b strings.Builder
	for i, step := range path {
		tag := strings.ToLower(step.Tag)
		if tag == "" {
			return ""
		}

		b.WriteByte('/')
		b.WriteString(tag)

		if i == 0 || (i == 1 && tag == "body") {
			continue
		}

		index := step.Index
		if index < 1 {
			index = 1
		}

		b.WriteByte('[')
		b.WriteString(strconv.Itoa(index))
		b.WriteByte(']')
	}

	return b.String()
}

// CSS is #id when an id is present, else tag.class1.class2, else the tag.
func CSS(id, tag string, classes []string) string {
	if id != "" {
		return "#" + cssEscape(id)
	}

	tag = strings.ToLower(tag)
	if tag == "" {
		return ""
	}

	if len(classes) == 0 {
		return tag
	}

	escaped := make([]string, len(classes))
	for i, c := range classes {
		escaped[i] = cssEscape(c)
	}

	return tag + "." + strings.Join(escaped, ".")
}

func classList(raw string) []string {
	return strings.Fields(raw)
}

func attribute(ctx context.Context, node ports.Node, name string) string {
	value, ok, err := node.Attribute(ctx, name)
	if err != nil || !ok {
		return ""
	}

	return strings.TrimSpace(value)
}

func tagName(ctx context.Context, node ports.Node) string {
	tag, err := node.TagName(ctx)
	if err != nil {
		return ""
	}

	return strings.ToLower(tag)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}

		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}

	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func cssEscape(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteString(`\3` + string(r) + ` `)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}

	return b.String()
}
