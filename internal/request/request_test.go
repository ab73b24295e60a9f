package request

import (
	"strings"
	"testing"
	"web-testgen/internal/entity"
	"web-testgen/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	req, err := Parse(strings.NewReader(`{"kind": "scan", "url": "https://example.test"}`))
	require.NoError(t, err)
	assert.Equal(t, Scan{Kind: KindScan, URL: "https://example.test"}, req)

	req, err = Parse(strings.NewReader(`{"kind": "synthesize", "url": "file:///tmp/page.html", "save": true}`))
	require.NoError(t, err)
	assert.Equal(t, KindSynthesize, req.RequestKind())
	assert.True(t, req.(Synthesize).Save)

	req, err = Parse(strings.NewReader(`{
		"kind": "interact",
		"target": {"tag": "input", "category": "text_input", "locators": [{"strategy": "css", "value": "#q"}], "state": {"is_visible": true, "is_enabled": true, "is_clickable": true}},
		"action": "input_text",
		"input_value": ""
	}`))
	require.NoError(t, err)

	interact := req.(Interact)
	assert.Equal(t, entity.ActionInputText, interact.Action)
	require.NotNil(t, interact.InputValue)
	assert.Equal(t, "", *interact.InputValue)

	req, err = Parse(strings.NewReader(`{"kind": "run", "run_id": "abc", "test_ids": ["TC_001"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"TC_001"}, req.(Run).TestIDs)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{`, apperr.CodeMalformedInput},
		{"missing kind", `{"url": "https://example.test"}`, apperr.CodeMalformedInput},
		{"unknown kind", `{"kind": "crawl"}`, apperr.CodeMalformedInput},
		{"unknown field", `{"kind": "scan", "url": "https://example.test", "depth": 2}`, apperr.CodeMalformedInput},
		{"missing url", `{"kind": "scan"}`, apperr.CodeMalformedInput},
		{"bad scheme", `{"kind": "scan", "url": "ftp://example.test"}`, apperr.CodeMalformedInput},
		{"no host", `{"kind": "scan", "url": "https:///path"}`, apperr.CodeMalformedInput},
		{"missing action", `{"kind": "interact", "target": {"category": "button"}}`, apperr.CodeMalformedInput},
		{"unknown action", `{"kind": "interact", "target": {"category": "button"}, "action": "swipe"}`, apperr.CodeUnsupportedAction},
		{"unknown category", `{"kind": "interact", "target": {"category": "slider"}, "action": "click"}`, apperr.CodeMalformedInput},
		{"no run source", `{"kind": "run"}`, apperr.CodeMalformedInput},
		{"two run sources", `{"kind": "run", "run_id": "a", "url": "https://example.test"}`, apperr.CodeMalformedInput},
		{"bad document", `{"kind": "run", "document": {"cases": [{"action": "click"}]}}`, apperr.CodeMalformedInput},
		{"empty test id", `{"kind": "run", "run_id": "a", "test_ids": [""]}`, apperr.CodeMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestDecode(t *testing.T) {
	req, err := Decode[Scan](strings.NewReader(`{"url": "https://example.test"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", req.URL)

	_, err = Decode[Scan](strings.NewReader(`{"kind": "run", "url": "https://example.test"}`))
	assert.Equal(t, apperr.CodeMalformedInput, apperr.CodeOf(err))

	_, err = Decode[Scan](strings.NewReader(`{"url": "https://example.test"} {"url": "x"}`))
	assert.Equal(t, apperr.CodeMalformedInput, apperr.CodeOf(err))
}
