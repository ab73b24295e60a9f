package entity

type ScanStatus string

const (
	ScanStatusOK      ScanStatus = "ok"
	ScanStatusPartial ScanStatus = "partial"
	ScanStatusFailed  ScanStatus = "failed"
)

// ExtractionFailure records one node skipped during a scan.
type ExtractionFailure struct {
	Category Category `json:"category" yaml:"category"`
	Index    int      `json:"index"    yaml:"index"`
	Reason   string   `json:"reason"   yaml:"reason"`
}

// ScanResult is the inventory of one scan plus its source metadata.
type ScanResult struct {
	RunID    string              `json:"run_id"             yaml:"run_id"`
	Status   ScanStatus          `json:"status"             yaml:"status"`
	Source   Source              `json:"source"             yaml:"source"`
	Elements []Element           `json:"elements"           yaml:"elements"`
	Skipped  []ExtractionFailure `json:"skipped,omitempty"  yaml:"skipped,omitempty"`
	Warnings []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Code     string              `json:"code,omitempty"     yaml:"code,omitempty"`
	Error    string              `json:"error,omitempty"    yaml:"error,omitempty"`
}

type InteractionStatus string

const (
	InteractionSuccess InteractionStatus = "success"
	InteractionFailed  InteractionStatus = "failed"
)

// ObservedState is the live state of a node around an action.
type ObservedState struct {
	Text      string `json:"text"                  yaml:"text"`
	Value     string `json:"value"                 yaml:"value"`
	Checked   bool   `json:"checked"               yaml:"checked"`
	Enabled   bool   `json:"enabled"               yaml:"enabled"`
	Displayed bool   `json:"displayed"             yaml:"displayed"`
	Classes   string `json:"css_classes,omitempty" yaml:"css_classes,omitempty"`
}

type Dialog struct {
	Message string `json:"message" yaml:"message"`
}

type PageEffects struct {
	URLBefore  string  `json:"url_before"       yaml:"url_before"`
	URLAfter   string  `json:"url_after"        yaml:"url_after"`
	URLChanged bool    `json:"url_changed"      yaml:"url_changed"`
	PageTitle  string  `json:"page_title"       yaml:"page_title"`
	Dialog     *Dialog `json:"dialog,omitempty" yaml:"dialog,omitempty"`
}

type Screenshots struct {
	Before string `json:"before,omitempty" yaml:"before,omitempty"`
	After  string `json:"after,omitempty"  yaml:"after,omitempty"`
}

// InteractionResult is the outcome of one resolve, act, observe cycle.
type InteractionResult struct {
	Status      InteractionStatus `json:"status"                yaml:"status"`
	Code        string            `json:"code,omitempty"        yaml:"code,omitempty"`
	Error       string            `json:"error,omitempty"       yaml:"error,omitempty"`
	Action      Action            `json:"action"                yaml:"action"`
	InputValue  *string           `json:"input_value,omitempty" yaml:"input_value,omitempty"`
	ResultType  string            `json:"result_type,omitempty" yaml:"result_type,omitempty"`
	Locator     *Locator          `json:"locator,omitempty"     yaml:"locator,omitempty"`
	Before      *ObservedState    `json:"before,omitempty"      yaml:"before,omitempty"`
	After       *ObservedState    `json:"after,omitempty"       yaml:"after,omitempty"`
	Effects     *PageEffects      `json:"effects,omitempty"     yaml:"effects,omitempty"`
	Screenshots *Screenshots      `json:"screenshots,omitempty" yaml:"screenshots,omitempty"`
	DurationMs  int64             `json:"duration_ms"           yaml:"duration_ms"`
}

func (r *InteractionResult) Succeeded() bool {
	return r != nil && r.Status == InteractionSuccess
}

type CaseOutcome string

const (
	OutcomePassed  CaseOutcome = "passed"
	OutcomeFailed  CaseOutcome = "failed"
	OutcomeSkipped CaseOutcome = "skipped"
)

type CaseResult struct {
	TestID  string             `json:"test_id"           yaml:"test_id"`
	Outcome CaseOutcome        `json:"outcome"           yaml:"outcome"`
	Reason  string             `json:"reason,omitempty"  yaml:"reason,omitempty"`
	Result  *InteractionResult `json:"result,omitempty"  yaml:"result,omitempty"`
}

// RunReport summarises executing a document's cases against a live page.
type RunReport struct {
	RunID   string       `json:"run_id"  yaml:"run_id"`
	Source  Source       `json:"source"  yaml:"source"`
	Passed  int          `json:"passed"  yaml:"passed"`
	Failed  int          `json:"failed"  yaml:"failed"`
	Skipped int          `json:"skipped" yaml:"skipped"`
	Results []CaseResult `json:"results" yaml:"results"`
}

func (r *RunReport) Record(res CaseResult) {
	switch res.Outcome {
	case OutcomePassed:
		r.Passed++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}

	r.Results = append(r.Results, res)
}

// Generation is the outcome of scanning a page and synthesizing its cases.
// Document is nil when the scan failed.
type Generation struct {
	Scan     *ScanResult   `json:"scan"               yaml:"scan"`
	Document *TestDocument `json:"document,omitempty" yaml:"document,omitempty"`
	Saved    bool          `json:"saved"              yaml:"saved"`
}

// Export lists the files a TestDocument was written to.
type Export struct {
	Document string `json:"document"  yaml:"document"`
	TestFile string `json:"test_file" yaml:"test_file"`
}
