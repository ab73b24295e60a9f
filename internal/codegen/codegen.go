// Package codegen renders test cases as a standalone playwright-go test file.
package codegen

import (
	"bytes"
	"go/format"
	"strconv"
	"strings"
	"text/template"
	"unicode"
	"web-testgen/internal/entity"
	"web-testgen/internal/executor"
	"web-testgen/pkg/apperr"
)

var fileTemplate = template.Must(template.New("generated").Funcs(template.FuncMap{
	"quote":   strconv.Quote,
	"comment": comment,
}).Parse(`// Code generated by webtestgen. DO NOT EDIT.

package generated_test

import (
	"testing"

	"github.com/playwright-community/playwright-go"
)

const targetURL = {{ quote .URL }}

func openPage(t *testing.T) playwright.Page {
	t.Helper()

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("start playwright: %v", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	if err != nil {
		t.Fatalf("launch browser: %v", err)
	}

	t.Cleanup(func() {
		_ = browser.Close()
		_ = pw.Stop()
	})

	page, err := browser.NewPage()
	if err != nil {
		t.Fatalf("open page: %v", err)
	}

	page.OnDialog(func(d playwright.Dialog) {
		_ = d.Accept()
	})

	if _, err := page.Goto(targetURL); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	return page
}
{{ range .Cases }}
// {{ .Func }} {{ comment .Name }}
// Expected: {{ comment .Expected }}
func {{ .Func }}(t *testing.T) {
	{{- if not .Selector }}
	t.Skip("target has no locators")
	{{- else }}
	page := openPage(t)
	el := page.Locator({{ quote .Selector }}).First()

	var err error
	{{ .Statement }}
	if err != nil {
		t.Fatalf("action failed: %v", err)
	}
	{{- end }}
}
{{ end }}`))

type caseView struct {
	Func      string
	Name      string
	Expected  string
	Selector  string
	Statement string
}

// Generate renders one test function per case. The output depends only on
// url and cases, so equal inputs produce byte-identical files. A test passes
// when the action returns no error; it asserts nothing about page state.
func Generate(url string, cases []entity.TestCase) (string, error) {
	const op = "Generate"

	views := make([]caseView, 0, len(cases))
	for _, tc := range cases {
		views = append(views, caseView{
			Func:      funcName(tc.TestID),
			Name:      tc.TestName,
			Expected:  tc.ExpectedResult,
			Selector:  Selector(tc.Target),
			Statement: statement(tc),
		})
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, struct {
		URL   string
		Cases []caseView
	}{URL: url, Cases: views}); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "template_failed",
			apperr.MetaStage:  apperr.StageCodegen,
		})
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "format_failed",
			apperr.MetaStage:  apperr.StageCodegen,
		})
	}

	return string(src), nil
}

// Selector picks the playwright selector for a target: its id when it has
// one, else the structural path, else the CSS locator.
func Selector(target entity.Target) string {
	if target.ID != "" {
		return "id=" + target.ID
	}

	if loc, ok := target.Locators.ByStrategy(entity.StrategyXPath); ok {
		return "xpath=" + loc.Value
	}

	if loc, ok := target.Locators.ByStrategy(entity.StrategyCSS); ok {
		return "css=" + loc.Value
	}

	return ""
}

func statement(tc entity.TestCase) string {
	input := strconv.Quote(tc.Input())

	switch tc.Action {
	case entity.ActionClick:
		return "err = el.Click()"
	case entity.ActionDoubleClick:
		return "err = el.Dblclick()"
	case entity.ActionRightClick:
		return "err = el.Click(playwright.LocatorClickOptions{Button: playwright.MouseButtonRight})"
	case entity.ActionHover:
		return "err = el.Hover()"
	case entity.ActionInputText:
		return "if err = el.Clear(); err == nil {\n\t\terr = el.Fill(" + input + ")\n\t}"
	case entity.ActionCheck:
		return "err = el.Check()"
	case entity.ActionUncheck:
		return "err = el.Uncheck()"
	case entity.ActionSelectByIndex, entity.ActionSelectByText:
		if index, ok := executor.Index(tc.Input()); ok {
			return "_, err = el.SelectOption(playwright.SelectOptionValues{Indexes: &[]int{" + strconv.Itoa(index) + "}})"
		}

		return "_, err = el.SelectOption(playwright.SelectOptionValues{Labels: &[]string{" + input + "}})"
	}

	return "t.Fatalf(\"unsupported action %q\", " + strconv.Quote(string(tc.Action)) + ")"
}

// funcName builds a name go test picks up: the rune after "Test" must not be
// a lower case letter.
func funcName(testID string) string {
	var b strings.Builder
	b.WriteString("Test")

	first := true
	for _, r := range testID {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}

		if first {
			r = unicode.ToUpper(r)
			first = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

func comment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
