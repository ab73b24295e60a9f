package codegen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"
	"web-testgen/internal/entity"
	"web-testgen/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventory() []entity.Element {
	return []entity.Element{
		{
			Tag:      "button",
			Category: entity.CategoryButton,
			ID:       "login-button",
			Text:     "Login",
			Locators: entity.Locators{
				{Strategy: entity.StrategyID, Value: `//*[@id="login-button"]`},
				{Strategy: entity.StrategyXPath, Value: "/html/body/button[1]"},
				{Strategy: entity.StrategyCSS, Value: "#login-button"},
			},
			State: entity.NewElementState(true, true),
		},
		{
			Tag:      "input",
			Category: entity.CategoryTextInput,
			Name:     "user-name",
			Locators: entity.Locators{
				{Strategy: entity.StrategyXPath, Value: "/html/body/form[1]/input[1]"},
				{Strategy: entity.StrategyCSS, Value: "input.field"},
			},
			State: entity.NewElementState(true, true),
		},
		{
			Tag:      "select",
			Category: entity.CategoryDropdown,
			Locators: entity.Locators{{Strategy: entity.StrategyCSS, Value: "select"}},
			State:    entity.NewElementState(true, true),
		},
		{
			Tag:      "input",
			Category: entity.CategoryCheckbox,
			State:    entity.NewElementState(true, true),
		},
	}
}

func TestGenerate(t *testing.T) {
	cases := synth.Synthesize(inventory())

	src, err := Generate("https://example.test/login", cases)
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "generated_test.go", src, parser.AllErrors)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(src, "// Code generated by webtestgen. DO NOT EDIT."))
	assert.Contains(t, src, `const targetURL = "https://example.test/login"`)

	for _, tc := range cases {
		assert.Contains(t, src, "func Test"+strings.ReplaceAll(tc.TestID, "_", "")+"(t *testing.T)")
	}

	assert.Contains(t, src, `page.Locator("id=login-button")`)
	assert.Contains(t, src, `page.Locator("xpath=/html/body/form[1]/input[1]")`)
	assert.Contains(t, src, `page.Locator("css=select")`)
	assert.Contains(t, src, `el.Fill("!@#$%^&*()")`)
	assert.Contains(t, src, `el.Fill("Test Data 123")`)
	assert.Contains(t, src, "SelectOptionValues{Indexes: &[]int{1}}")
	assert.Contains(t, src, `t.Skip("target has no locators")`)
	assert.Contains(t, src, "// Expected: Button should be clickable and trigger appropriate action")
}

func TestGenerateIsDeterministic(t *testing.T) {
	cases := synth.Synthesize(inventory())

	first, err := Generate("https://example.test", cases)
	require.NoError(t, err)

	second, err := Generate("https://example.test", synth.Synthesize(inventory()))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateQuotesHostileInput(t *testing.T) {
	payload := "\"`\n}"
	cases := []entity.TestCase{{
		TestID:         "TC_001",
		TestName:       "Input\nweird */ data",
		Target:         entity.Target{ID: `a"b`, Category: entity.CategoryTextInput},
		Action:         entity.ActionInputText,
		InputValue:     &payload,
		ExpectedResult: "Field should accept valid input",
	}, {
		TestID: "TC_002",
		Target: entity.Target{ID: "x", Category: entity.CategoryDropdown},
		Action: entity.ActionSelectByText,
		InputValue: func() *string {
			s := "Germany"

			return &s
		}(),
	}}

	src, err := Generate("https://example.test/?q=\"x\"", cases)
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "generated_test.go", src, parser.AllErrors)
	require.NoError(t, err)
	assert.Contains(t, src, `Labels: &[]string{"Germany"}`)
}

func TestSelector(t *testing.T) {
	assert.Equal(t, "id=login", Selector(entity.Target{ID: "login"}))
	assert.Equal(t, "xpath=/html/body/a[1]", Selector(entity.Target{Locators: entity.Locators{
		{Strategy: entity.StrategyCSS, Value: "a"},
		{Strategy: entity.StrategyXPath, Value: "/html/body/a[1]"},
	}}))
	assert.Equal(t, "css=a.nav", Selector(entity.Target{Locators: entity.Locators{{Strategy: entity.StrategyCSS, Value: "a.nav"}}}))
	assert.Equal(t, "", Selector(entity.Target{}))
}

func TestFuncName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"TC_001", "TestTC001"},
		{"tc_1", "TestTc1"},
		{"1-step", "Test1step"},
		{"", "Test"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, funcName(tt.id))
		})
	}
}
