package classify

import (
	"testing"
	"web-testgen/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		hints Hints
		want  entity.Category
		ok    bool
	}{
		{"button tag", Hints{Tag: "button"}, entity.CategoryButton, true},
		{"upper case tag", Hints{Tag: "BUTTON"}, entity.CategoryButton, true},
		{"submit input", Hints{Tag: "input", Type: "submit"}, entity.CategoryButton, true},
		{"reset input", Hints{Tag: "input", Type: "Reset"}, entity.CategoryButton, true},
		{"link with href", Hints{Tag: "a", Href: "/login"}, entity.CategoryLink, true},
		{"anchor without href", Hints{Tag: "a"}, "", false},
		{"anchor with blank href", Hints{Tag: "a", Href: "  "}, "", false},
		{"anchor with button role", Hints{Tag: "a", Href: "#", Role: "button"}, entity.CategoryLink, true},
		{"email input", Hints{Tag: "input", Type: "email"}, entity.CategoryTextInput, true},
		{"input without type", Hints{Tag: "input"}, entity.CategoryTextInput, true},
		{"textarea", Hints{Tag: "textarea"}, entity.CategoryTextInput, true},
		{"checkbox", Hints{Tag: "input", Type: "checkbox"}, entity.CategoryCheckbox, true},
		{"radio", Hints{Tag: "input", Type: "radio"}, entity.CategoryRadio, true},
		{"select", Hints{Tag: "select"}, entity.CategoryDropdown, true},
		{"file", Hints{Tag: "input", Type: "file"}, entity.CategoryFileUpload, true},
		{"hidden input", Hints{Tag: "input", Type: "hidden"}, "", false},
		{"div with handler", Hints{Tag: "div", HasClickHandler: true}, entity.CategoryClickableContainer, true},
		{"span with tab role", Hints{Tag: "span", Role: "tab"}, entity.CategoryClickableContainer, true},
		{"li with menuitem role", Hints{Tag: "li", Role: "MenuItem"}, entity.CategoryClickableContainer, true},
		{"plain div", Hints{Tag: "div"}, "", false},
		{"div with other role", Hints{Tag: "div", Role: "dialog"}, "", false},
		{"paragraph with handler", Hints{Tag: "p", HasClickHandler: true}, "", false},
		{"image", Hints{Tag: "img", HasClickHandler: true}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.hints)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	hints := []Hints{
		{Tag: "input", Type: "checkbox"},
		{Tag: "div", Role: "button"},
		{Tag: "a", Href: "/x"},
		{Tag: "section"},
	}

	first := make([]entity.Category, len(hints))
	for i, h := range hints {
		first[i], _ = Classify(h)
	}

	for round := 0; round < 5; round++ {
		for i := len(hints) - 1; i >= 0; i-- {
			got, _ := Classify(hints[i])
			assert.Equal(t, first[i], got)
		}
	}
}

func TestSelectorsCoverEveryCategory(t *testing.T) {
	selectors := Selectors()

	got := make([]entity.Category, 0, len(selectors))
	for _, s := range selectors {
		assert.NotEmpty(t, s.CSS)
		got = append(got, s.Category)
	}

	assert.Equal(t, entity.Categories, got)
	assert.Contains(t, selectors[len(selectors)-1].CSS, "div[onclick]")
	assert.Contains(t, selectors[len(selectors)-1].CSS, "article[role='tab' i]")
}

func TestSelectorsIgnoreTypeCase(t *testing.T) {
	byCategory := map[entity.Category]string{}
	for _, s := range Selectors() {
		byCategory[s.Category] = s.CSS
	}

	assert.Contains(t, byCategory[entity.CategoryButton], "input[type='submit' i]")
	assert.Contains(t, byCategory[entity.CategoryTextInput], "input[type='email' i]")
	assert.Contains(t, byCategory[entity.CategoryTextInput], "input[type='']")
	assert.Equal(t, "input[type='checkbox' i]", byCategory[entity.CategoryCheckbox])
}
