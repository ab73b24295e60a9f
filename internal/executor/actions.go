package executor

import (
	"context"
	"fmt"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
)

const (
	ResultClick       = "click_performed"
	ResultDoubleClick = "double_click_performed"
	ResultRightClick  = "right_click_performed"
	ResultHover       = "hover_performed"
	ResultTextInput   = "text_input_performed"
	ResultSelected    = "dropdown_selected"
	ResultChecked     = "checkbox_checked"
	ResultUnchecked   = "checkbox_unchecked"
)

// applicable lists the categories an action may target. Actions missing
// from the map apply to every category.
var applicable = map[entity.Action][]entity.Category{
	entity.ActionSelectByIndex: {entity.CategoryDropdown},
	entity.ActionSelectByText:  {entity.CategoryDropdown},
	entity.ActionCheck:         {entity.CategoryCheckbox, entity.CategoryRadio},
	entity.ActionUncheck:       {entity.CategoryCheckbox},
}

func validate(target entity.Target, action entity.Action, input *string) error {
	const op = "validate"

	if !action.Valid() {
		return apperr.Wrap(op, apperr.CodeUnsupportedAction, fmt.Errorf("unknown action %q", action), map[string]any{
			apperr.MetaReason: "unknown_action",
			apperr.MetaAction: string(action),
		})
	}

	if allowed, ok := applicable[action]; ok && !containsCategory(allowed, target.Category) {
		return apperr.Wrap(op, apperr.CodeUnsupportedAction,
			fmt.Errorf("action %q does not apply to %s elements", action, target.Category),
			map[string]any{
				apperr.MetaReason: "action_not_applicable",
				apperr.MetaAction: string(action),
			})
	}

	switch action {
	case entity.ActionInputText, entity.ActionSelectByIndex, entity.ActionSelectByText:
		if input == nil {
			return apperr.MalformedInputError(op, "input_value", fmt.Errorf("action %q needs an input value", action))
		}
	}

	return nil
}

func act(ctx context.Context, node ports.Node, action entity.Action, input *string) (string, error) {
	switch action {
	case entity.ActionClick:
		return ResultClick, node.Click(ctx, ports.ClickOptions{Button: ports.ButtonLeft, Count: 1})
	case entity.ActionDoubleClick:
		return ResultDoubleClick, node.Click(ctx, ports.ClickOptions{Button: ports.ButtonLeft, Count: 2})
	case entity.ActionRightClick:
		return ResultRightClick, node.Click(ctx, ports.ClickOptions{Button: ports.ButtonRight, Count: 1})
	case entity.ActionHover:
		return ResultHover, node.Hover(ctx)
	case entity.ActionInputText:
		if err := node.Clear(ctx); err != nil {
			return "", err
		}

		return ResultTextInput, node.Fill(ctx, *input)
	case entity.ActionSelectByIndex, entity.ActionSelectByText:
		if index, ok := Index(*input); ok {
			return ResultSelected, node.SelectIndex(ctx, index)
		}

		return ResultSelected, node.SelectText(ctx, *input)
	case entity.ActionCheck:
		return ResultChecked, setChecked(ctx, node, true)
	case entity.ActionUncheck:
		return ResultUnchecked, setChecked(ctx, node, false)
	}

	return "", fmt.Errorf("unknown action %q", action)
}

// setChecked clicks only when the state differs, so repeating it is a no-op.
func setChecked(ctx context.Context, node ports.Node, want bool) error {
	checked, err := node.IsChecked(ctx)
	if err != nil {
		return err
	}

	if checked == want {
		return nil
	}

	return node.Click(ctx, ports.ClickOptions{Button: ports.ButtonLeft, Count: 1})
}

func containsCategory(list []entity.Category, c entity.Category) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}

	return false
}
