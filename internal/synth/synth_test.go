package synth

import (
	"fmt"
	"testing"
	"web-testgen/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func element(category entity.Category, tag string) entity.Element {
	return entity.Element{
		Tag:      tag,
		Category: category,
		Locators: entity.Locators{{Strategy: entity.StrategyCSS, Value: tag}},
		State:    entity.NewElementState(true, true),
	}
}

func TestSynthesizeButton(t *testing.T) {
	login := element(entity.CategoryButton, "button")
	login.Text = "Login"

	cases := Synthesize([]entity.Element{login})

	require.Len(t, cases, 2)

	assert.Equal(t, "TC_001", cases[0].TestID)
	assert.Equal(t, entity.ActionClick, cases[0].Action)
	assert.Equal(t, entity.PriorityHigh, cases[0].Priority)
	assert.Equal(t, entity.TagFunctional, cases[0].CategoryTag)
	assert.Equal(t, "Click Login", cases[0].TestName)
	assert.Nil(t, cases[0].InputValue)

	assert.Equal(t, "TC_002", cases[1].TestID)
	assert.Equal(t, entity.ActionHover, cases[1].Action)
	assert.Equal(t, entity.PriorityMedium, cases[1].Priority)
	assert.Equal(t, entity.TagUI, cases[1].CategoryTag)
	assert.Equal(t, "Button should respond to hover with visual feedback", cases[1].ExpectedResult)
}

func TestSynthesizeTextInput(t *testing.T) {
	input := element(entity.CategoryTextInput, "input")
	input.Name = "user-name"

	cases := Synthesize([]entity.Element{input})

	require.Len(t, cases, 2)

	assert.Equal(t, "TC_001", cases[0].TestID)
	assert.Equal(t, entity.ActionInputText, cases[0].Action)
	require.NotNil(t, cases[0].InputValue)
	assert.Equal(t, "Test Data 123", *cases[0].InputValue)
	assert.Equal(t, entity.PriorityHigh, cases[0].Priority)
	assert.Equal(t, entity.TagFunctional, cases[0].CategoryTag)
	assert.Equal(t, "Input valid data in user-name", cases[0].TestName)

	assert.Equal(t, "TC_002", cases[1].TestID)
	require.NotNil(t, cases[1].InputValue)
	assert.Equal(t, "!@#$%^&*()", *cases[1].InputValue)
	assert.Equal(t, entity.PriorityMedium, cases[1].Priority)
	assert.Equal(t, entity.TagNegative, cases[1].CategoryTag)
}

func TestSynthesizeMixedInventoryNumbersGlobally(t *testing.T) {
	inventory := []entity.Element{
		element(entity.CategoryButton, "button"),
		element(entity.CategoryTextInput, "input"),
		element(entity.CategoryLink, "a"),
	}

	cases := Synthesize(inventory)

	ids := make([]string, len(cases))
	for i, tc := range cases {
		ids[i] = tc.TestID
	}

	assert.Equal(t, []string{"TC_001", "TC_002", "TC_003", "TC_004", "TC_005"}, ids)
	assert.Equal(t, entity.CategoryButton, cases[1].Target.Category)
	assert.Equal(t, entity.CategoryTextInput, cases[3].Target.Category)
	assert.Equal(t, "Click link: Link", cases[4].TestName)
}

func TestSynthesizeUncoveredCategoriesEmitNothing(t *testing.T) {
	inventory := []entity.Element{
		element(entity.CategoryRadio, "input"),
		element(entity.CategoryFileUpload, "input"),
		element(entity.CategoryClickableContainer, "div"),
		element(entity.CategoryCheckbox, "input"),
		element(entity.CategoryDropdown, "select"),
	}

	cases := Synthesize(inventory)

	require.Len(t, cases, 3)
	assert.Equal(t, entity.ActionCheck, cases[0].Action)
	assert.Equal(t, "TC_001", cases[0].TestID)
	assert.Equal(t, entity.ActionUncheck, cases[1].Action)
	assert.Equal(t, entity.ActionSelectByIndex, cases[2].Action)
	assert.Equal(t, "1", cases[2].Input())
	assert.False(t, Covered(entity.CategoryRadio))
	assert.True(t, Covered(entity.CategoryLink))
}

func TestSynthesizeIDsStrictlyIncrease(t *testing.T) {
	inventory := make([]entity.Element, 0, len(entity.Categories)*20)
	for i := 0; i < 20; i++ {
		for _, c := range entity.Categories {
			inventory = append(inventory, element(c, "x"))
		}
	}

	cases := Synthesize(inventory)

	for i, tc := range cases {
		assert.Equal(t, fmt.Sprintf("TC_%03d", i+1), tc.TestID)
	}
	assert.Len(t, cases, 20*(2+2+1+2+1))
}

func TestSynthesizeEmptyInventory(t *testing.T) {
	cases := Synthesize(nil)

	assert.NotNil(t, cases)
	assert.Empty(t, cases)
}

func TestSynthesizeTargetIsSnapshot(t *testing.T) {
	input := element(entity.CategoryTextInput, "input")
	input.Classes = []string{"form-control"}
	input.Attributes = map[string]string{"type": "text"}

	cases := Synthesize([]entity.Element{input})

	input.Classes[0] = "changed"
	input.Attributes["type"] = "password"
	input.Locators[0].Value = "changed"

	assert.Equal(t, "form-control", cases[0].Target.Classes[0])
	assert.Equal(t, "text", cases[0].Target.Attributes["type"])
	assert.Equal(t, "input", cases[0].Target.Locators[0].Value)

	*cases[0].InputValue = "mutated"

	again := Synthesize([]entity.Element{input})
	assert.Equal(t, PayloadValidText, again[0].Input())
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	inventory := []entity.Element{
		element(entity.CategoryLink, "a"),
		element(entity.CategoryCheckbox, "input"),
	}

	assert.Equal(t, Synthesize(inventory), Synthesize(inventory))
}
