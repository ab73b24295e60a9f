package entity

type Category string

const (
	CategoryButton             Category = "button"
	CategoryLink               Category = "link"
	CategoryTextInput          Category = "text_input"
	CategoryCheckbox           Category = "checkbox"
	CategoryRadio              Category = "radio"
	CategoryDropdown           Category = "dropdown"
	CategoryFileUpload         Category = "file_upload"
	CategoryClickableContainer Category = "clickable_container"
)

// Categories lists every category in scan order.
var Categories = []Category{
	CategoryButton,
	CategoryLink,
	CategoryTextInput,
	CategoryCheckbox,
	CategoryRadio,
	CategoryDropdown,
	CategoryFileUpload,
	CategoryClickableContainer,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}

type LocatorStrategy string

const (
	StrategyID    LocatorStrategy = "id"
	StrategyXPath LocatorStrategy = "xpath"
	StrategyCSS   LocatorStrategy = "css"
)

// Locator is one way to re-find a node. ID and XPath strategies hold XPath
// expressions, CSS holds a CSS selector.
type Locator struct {
	Strategy LocatorStrategy `json:"strategy" yaml:"strategy"`
	Value    string          `json:"value"    yaml:"value"`
}

// Locators is ordered most specific first.
type Locators []Locator

func (l Locators) Primary() (Locator, bool) {
	if len(l) == 0 {
		return Locator{}, false
	}

	return l[0], true
}

func (l Locators) ByStrategy(strategy LocatorStrategy) (Locator, bool) {
	for _, loc := range l {
		if loc.Strategy == strategy {
			return loc, true
		}
	}

	return Locator{}, false
}

func (l Locators) Clone() Locators {
	if len(l) == 0 {
		return nil
	}

	out := make(Locators, len(l))
	copy(out, l)

	return out
}

type ElementState struct {
	IsVisible   bool `json:"is_visible"   yaml:"is_visible"`
	IsEnabled   bool `json:"is_enabled"   yaml:"is_enabled"`
	IsClickable bool `json:"is_clickable" yaml:"is_clickable"`
}

func NewElementState(visible, enabled bool) ElementState {
	return ElementState{
		IsVisible:   visible,
		IsEnabled:   enabled,
		IsClickable: visible && enabled,
	}
}

// Element is one discovered interactive node.
type Element struct {
	Tag        string            `json:"tag"                  yaml:"tag"`
	Category   Category          `json:"category"             yaml:"category"`
	ID         string            `json:"id,omitempty"         yaml:"id,omitempty"`
	Name       string            `json:"name,omitempty"       yaml:"name,omitempty"`
	Classes    []string          `json:"classes,omitempty"    yaml:"classes,omitempty"`
	Text       string            `json:"text,omitempty"       yaml:"text,omitempty"`
	Locators   Locators          `json:"locators"             yaml:"locators,omitempty"`
	State      ElementState      `json:"state"                yaml:"state"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// AttributeAllowlist is the fixed set of attributes captured per element.
var AttributeAllowlist = []string{"type", "value", "placeholder", "href", "src", "alt", "title", "role"}

const MaxTextLength = 100

// Target is the immutable snapshot of an Element carried by a TestCase.
type Target struct {
	Tag        string            `json:"tag"                  yaml:"tag"`
	Category   Category          `json:"category"             yaml:"category"`
	ID         string            `json:"id,omitempty"         yaml:"id,omitempty"`
	Name       string            `json:"name,omitempty"       yaml:"name,omitempty"`
	Classes    []string          `json:"classes,omitempty"    yaml:"classes,omitempty"`
	Text       string            `json:"text,omitempty"       yaml:"text,omitempty"`
	Locators   Locators          `json:"locators"             yaml:"locators,omitempty"`
	State      ElementState      `json:"state"                yaml:"state"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Snapshot deep-copies the element so later changes to it never reach the
// returned Target.
func (e Element) Snapshot() Target {
	return Target{
		Tag:        e.Tag,
		Category:   e.Category,
		ID:         e.ID,
		Name:       e.Name,
		Classes:    cloneStrings(e.Classes),
		Text:       e.Text,
		Locators:   e.Locators.Clone(),
		State:      e.State,
		Attributes: cloneAttributes(e.Attributes),
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	out := make([]string, len(in))
	copy(out, in)

	return out
}

func cloneAttributes(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}

	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
