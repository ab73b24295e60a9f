package entity

import (
	"fmt"
	"time"
)

type Action string

const (
	ActionClick         Action = "click"
	ActionHover         Action = "hover"
	ActionInputText     Action = "input_text"
	ActionCheck         Action = "check"
	ActionUncheck       Action = "uncheck"
	ActionSelectByIndex Action = "select_by_index"
	ActionSelectByText  Action = "select_by_text"
	ActionDoubleClick   Action = "double_click"
	ActionRightClick    Action = "right_click"
)

var Actions = []Action{
	ActionClick,
	ActionHover,
	ActionInputText,
	ActionCheck,
	ActionUncheck,
	ActionSelectByIndex,
	ActionSelectByText,
	ActionDoubleClick,
	ActionRightClick,
}

func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}

	return false
}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type CategoryTag string

const (
	TagFunctional CategoryTag = "Functional"
	TagNegative   CategoryTag = "Negative"
	TagUI         CategoryTag = "UI"
)

// TestCase is one synthesized check against one element snapshot.
type TestCase struct {
	TestID         string      `json:"test_id"               yaml:"test_id"`
	TestName       string      `json:"test_name"             yaml:"test_name"`
	Target         Target      `json:"target"                yaml:"target"`
	Action         Action      `json:"action"                yaml:"action"`
	InputValue     *string     `json:"input_value,omitempty" yaml:"input_value,omitempty"`
	ExpectedResult string      `json:"expected_result"       yaml:"expected_result"`
	Priority       Priority    `json:"priority"              yaml:"priority"`
	CategoryTag    CategoryTag `json:"category_tag"          yaml:"category_tag"`
}

// Input returns the payload, or "" when the case carries none.
func (tc TestCase) Input() string {
	if tc.InputValue == nil {
		return ""
	}

	return *tc.InputValue
}

func FormatTestID(n int) string {
	return fmt.Sprintf("TC_%03d", n)
}

type Source struct {
	URL       string    `json:"url"        yaml:"url"`
	PageTitle string    `json:"page_title" yaml:"page_title"`
	Timestamp time.Time `json:"timestamp"  yaml:"timestamp"`
}

// TestDocument is the aggregate produced once per scan.
type TestDocument struct {
	RunID             string     `json:"run_id"             yaml:"run_id"`
	Source            Source     `json:"source"             yaml:"source"`
	InventorySize     int        `json:"inventory_size"     yaml:"inventory_size"`
	Cases             []TestCase `json:"cases"              yaml:"cases"`
	GeneratedArtifact string     `json:"generated_artifact" yaml:"generated_artifact"`
}

func (d *TestDocument) Case(testID string) (TestCase, bool) {
	for _, tc := range d.Cases {
		if tc.TestID == testID {
			return tc, true
		}
	}

	return TestCase{}, false
}
