// Package synth maps an element inventory onto the fixed test case catalogue.
package synth

import (
	"web-testgen/internal/entity"
)

const (
	PayloadValidText    = "Test Data 123"
	PayloadSpecialChars = "!@#$%^&*()"
	PayloadFirstOption  = "1"
)

type template struct {
	action   entity.Action
	payload  *string
	expected string
	priority entity.Priority
	tag      entity.CategoryTag
	name     func(e entity.Element) string
}

// catalogue has no rows for radio, file_upload and clickable_container; those
// elements are scanned but produce no cases.
var catalogue = map[entity.Category][]template{
	entity.CategoryButton: {
		{
			action:   entity.ActionClick,
			expected: "Button should be clickable and trigger appropriate action",
			priority: entity.PriorityHigh,
			tag:      entity.TagFunctional,
			name:     func(e entity.Element) string { return "Click " + or(e.Text, "Button") },
		},
		{
			action:   entity.ActionHover,
			expected: "Button should respond to hover with visual feedback",
			priority: entity.PriorityMedium,
			tag:      entity.TagUI,
			name:     func(e entity.Element) string { return "Hover over " + or(e.Text, "Button") },
		},
	},
	entity.CategoryTextInput: {
		{
			action:   entity.ActionInputText,
			payload:  ptr(PayloadValidText),
			expected: "Field should accept valid input",
			priority: entity.PriorityHigh,
			tag:      entity.TagFunctional,
			name:     func(e entity.Element) string { return "Input valid data in " + or(e.Name, "field") },
		},
		{
			action:   entity.ActionInputText,
			payload:  ptr(PayloadSpecialChars),
			expected: "Field should handle special characters appropriately",
			priority: entity.PriorityMedium,
			tag:      entity.TagNegative,
			name:     func(e entity.Element) string { return "Input special characters in " + or(e.Name, "field") },
		},
	},
	entity.CategoryLink: {
		{
			action:   entity.ActionClick,
			expected: "Link should navigate to target page or trigger appropriate action",
			priority: entity.PriorityHigh,
			tag:      entity.TagFunctional,
			name:     func(e entity.Element) string { return "Click link: " + or(e.Text, "Link") },
		},
	},
	entity.CategoryCheckbox: {
		{
			action:   entity.ActionCheck,
			expected: "Checkbox should be checked",
			priority: entity.PriorityHigh,
			tag:      entity.TagFunctional,
			name:     fixed("Check checkbox"),
		},
		{
			action:   entity.ActionUncheck,
			expected: "Checkbox should be unchecked",
			priority: entity.PriorityHigh,
			tag:      entity.TagFunctional,
			name:     fixed("Uncheck checkbox"),
		},
	},
	entity.CategoryDropdown: {
		{
			action:   entity.ActionSelectByIndex,
			payload:  ptr(PayloadFirstOption),
			expected: "Dropdown should select option by index",
			priority: entity.PriorityHigh,
			tag:      entity.TagFunctional,
			name:     fixed("Select dropdown option by index"),
		},
	},
}

// Synthesize emits the catalogue cases for each element in inventory order.
// Ids run TC_001, TC_002, ... across the whole inventory.
func Synthesize(inventory []entity.Element) []entity.TestCase {
	cases := make([]entity.TestCase, 0, len(inventory)*2)
	counter := 0

	for _, element := range inventory {
		for _, tpl := range catalogue[element.Category] {
			counter++

			cases = append(cases, entity.TestCase{
				TestID:         entity.FormatTestID(counter),
				TestName:       tpl.name(element),
				Target:         element.Snapshot(),
				Action:         tpl.action,
				InputValue:     clone(tpl.payload),
				ExpectedResult: tpl.expected,
				Priority:       tpl.priority,
				CategoryTag:    tpl.tag,
			})
		}
	}

	return cases
}

// Covered reports whether the catalogue has any rows for category.
func Covered(category entity.Category) bool {
	return len(catalogue[category]) > 0
}

func fixed(name string) func(entity.Element) string {
	return func(entity.Element) string { return name }
}

func or(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func ptr(s string) *string {
	return &s
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}
