package logg

// Structured log field keys shared by every layer.
const (
	Layer     = "layer"
	Operation = "operation"
	RunID     = "run_id"
	URL       = "url"
	Selector  = "selector"
	Action    = "action"
	TestID    = "test_id"
	Category  = "category"
	Engine    = "engine"
	Code      = "code"
	Reason    = "reason"
)
