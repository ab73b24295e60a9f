// Package classify assigns an interaction category to a DOM node from its tag,
// type, href and role hints. Classification looks at one node only.
package classify

import (
	"strings"
	"web-testgen/internal/entity"
)

type Hints struct {
	Tag             string
	Type            string
	Href            string
	Role            string
	HasClickHandler bool
}

type rule struct {
	category entity.Category
	match    func(h Hints) bool
	selector string
}

var (
	buttonInputTypes = []string{"button", "submit", "reset"}
	textInputTypes   = []string{"text", "email", "password", "number"}
	containerTags    = []string{"div", "span", "li", "section", "article"}
	buttonLikeRoles  = []string{"button", "link", "menuitem", "tab"}
)

// rules is the decision list. The first match wins.
var rules = []rule{
	{
		category: entity.CategoryButton,
		match: func(h Hints) bool {
			return h.Tag == "button" || (h.Tag == "input" && contains(buttonInputTypes, h.inputType()))
		},
		selector: "button, " + inputSelector(buttonInputTypes...),
	},
	{
		category: entity.CategoryLink,
		match: func(h Hints) bool {
			return h.Tag == "a" && strings.TrimSpace(h.Href) != ""
		},
		selector: "a[href]",
	},
	{
		category: entity.CategoryTextInput,
		match: func(h Hints) bool {
			return h.Tag == "textarea" || (h.Tag == "input" && contains(textInputTypes, h.inputType()))
		},
		selector: inputSelector(textInputTypes...) + ", input:not([type]), input[type=''], textarea",
	},
	{
		category: entity.CategoryCheckbox,
		match: func(h Hints) bool {
			return h.Tag == "input" && h.inputType() == "checkbox"
		},
		selector: inputSelector("checkbox"),
	},
	{
		category: entity.CategoryRadio,
		match: func(h Hints) bool {
			return h.Tag == "input" && h.inputType() == "radio"
		},
		selector: inputSelector("radio"),
	},
	{
		category: entity.CategoryDropdown,
		match: func(h Hints) bool {
			return h.Tag == "select"
		},
		selector: "select",
	},
	{
		category: entity.CategoryFileUpload,
		match: func(h Hints) bool {
			return h.Tag == "input" && h.inputType() == "file"
		},
		selector: inputSelector("file"),
	},
	{
		category: entity.CategoryClickableContainer,
		match: func(h Hints) bool {
			if !contains(containerTags, h.Tag) {
				return false
			}

			return h.HasClickHandler || contains(buttonLikeRoles, h.role())
		},
		selector: containerSelector(),
	},
}

// Classify returns the category of the node described by h, or false when the
// node is not interactive and must be left out of the inventory.
func Classify(h Hints) (entity.Category, bool) {
	h.Tag = strings.ToLower(strings.TrimSpace(h.Tag))

	for _, r := range rules {
		if r.match(h) {
			return r.category, true
		}
	}

	return "", false
}

type CategorySelector struct {
	Category entity.Category
	CSS      string
}

// Selectors returns one retrieval selector per category in decision order.
// A selector only narrows the candidates; Classify has the final say.
func Selectors() []CategorySelector {
	out := make([]CategorySelector, 0, len(rules))
	for _, r := range rules {
		out = append(out, CategorySelector{Category: r.category, CSS: r.selector})
	}

	return out
}

// inputType applies the HTML default: an input without a type is a text field.
func (h Hints) inputType() string {
	t := strings.ToLower(strings.TrimSpace(h.Type))
	if t == "" {
		return "text"
	}

	return t
}

func (h Hints) role() string {
	return strings.ToLower(strings.TrimSpace(h.Role))
}

// inputSelector matches inputs of the given types. Type values are ASCII
// case-insensitive in HTML, as they are in Classify.
func inputSelector(types ...string) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, "input[type='"+t+"' i]")
	}

	return strings.Join(parts, ", ")
}

func containerSelector() string {
	parts := make([]string, 0, len(containerTags)*(len(buttonLikeRoles)+1))
	for _, tag := range containerTags {
		parts = append(parts, tag+"[onclick]")
		for _, role := range buttonLikeRoles {
			parts = append(parts, tag+"[role='"+role+"' i]")
		}
	}

	return strings.Join(parts, ", ")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}

	return false
}
