package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"web-testgen/internal/entity"
	"web-testgen/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Contact</title></head><body>
<input type="text" id="subject">
<button id="send" type="button">Send</button>
</body></html>`

func setup(t *testing.T) (string, string) {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(site.Close)

	dir := t.TempDir()

	t.Setenv("BROWSER_ENGINE", "static")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OUTPUT_DIR", dir)
	t.Setenv("OUTPUT_FORMAT", "json")
	t.Setenv("INTERACT_SETTLE_WAIT", "0s")
	t.Setenv("DIALOG_WAIT", "50ms")
	t.Setenv("STORE_ENABLED", "false")

	return site.URL, dir
}

func execute(args ...string) (string, error) {
	root := NewRootCommand()
	out := &bytes.Buffer{}

	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestScanCommand(t *testing.T) {
	url, _ := setup(t)

	out, err := execute("scan", url)
	require.NoError(t, err)

	var res entity.ScanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, entity.ScanStatusOK, res.Status)
	assert.Equal(t, "Contact", res.Source.PageTitle)
	assert.Len(t, res.Elements, 2)

	out, err = execute("scan", url, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "page_title: Contact")
}

func TestGenerateAndRun(t *testing.T) {
	url, dir := setup(t)

	out, err := execute("generate", url)
	require.NoError(t, err)

	var doc entity.TestDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	require.NotEmpty(t, doc.Cases)

	path := filepath.Join(dir, doc.RunID+".json")
	require.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "generated", doc.RunID+"_test.go"))

	out, err = execute("run", path)
	require.NoError(t, err)

	var report entity.RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, len(doc.Cases), report.Passed)

	out, err = execute("run", path, "--case", doc.Cases[0].TestID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Results, 1)

	_, err = execute("run", path, "--case", "TC_999")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestCommandErrors(t *testing.T) {
	url, _ := setup(t)

	_, err := execute("scan", url, "--format", "xml")
	assert.ErrorContains(t, err, "OUTPUT_FORMAT")

	_, err = execute("scan", "ftp://example.com")
	assert.Equal(t, apperr.CodeMalformedInput, apperr.CodeOf(err))

	_, err = execute("run", "some-run-id")
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

	_, err = execute("interact", "--action", "swipe", "--target", `{"category":"button"}`)
	assert.Equal(t, apperr.CodeUnsupportedAction, apperr.CodeOf(err))
}

func TestInteractCommand(t *testing.T) {
	url, _ := setup(t)

	out, err := execute("interact", "--url", url, "--action", "input_text", "--input", "hello",
		"--target", `{"category":"text_input","locators":[{"strategy":"css","value":"#subject"}],"state":{"is_visible":true,"is_enabled":true}}`)
	require.NoError(t, err)

	var res entity.InteractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, entity.InteractionSuccess, res.Status, res.Error)
	require.NotNil(t, res.After)
	assert.Equal(t, "hello", res.After.Value)
}

func TestRunRequest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run_id: \"\"\nsource:\n  url: http://x.test/\ncases: []\n"), 0o644))

	req, err := runRequest("https://x.test/login", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/login", req.URL)

	req, err = runRequest(path, []string{"TC_001"})
	require.NoError(t, err)
	require.NotNil(t, req.Document)
	assert.Equal(t, "http://x.test/", req.Document.Source.URL)
	assert.Equal(t, []string{"TC_001"}, req.TestIDs)

	req, err = runRequest("0b6c1f0e-3a0d-4f7e-9a55-0d6b7c2f8e11", nil)
	require.NoError(t, err)
	assert.Equal(t, "0b6c1f0e-3a0d-4f7e-9a55-0d6b7c2f8e11", req.RunID)
}

func TestReadTarget(t *testing.T) {
	target, err := readTarget(`{"category":"link","locators":[{"strategy":"css","value":"a"}]}`)
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryLink, target.Category)

	path := filepath.Join(t.TempDir(), "target.yml")
	require.NoError(t, os.WriteFile(path, []byte("category: checkbox\nlocators:\n  - strategy: css\n    value: '#agree'\n"), 0o644))

	target, err = readTarget("@" + path)
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryCheckbox, target.Category)
	require.Len(t, target.Locators, 1)

	_, err = readTarget(`{"category":"link","bogus":1}`)
	assert.Equal(t, apperr.CodeMalformedInput, apperr.CodeOf(err))
}
