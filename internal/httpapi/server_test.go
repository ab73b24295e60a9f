package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/entity"
	"web-testgen/internal/executor"
	"web-testgen/internal/htmldom"
	"web-testgen/internal/ports"
	"web-testgen/internal/scanner"
	"web-testgen/internal/storage"
	"web-testgen/internal/usecase"
	"web-testgen/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const page = `<html><head><title>Checkout</title></head><body>
<input type="email" id="email" name="email">
<button id="pay" onclick="alert('Paid')">Pay</button>
</body></html>`

type fixture struct {
	site *httptest.Server
	api  *httptest.Server
}

func newFixture(t *testing.T, withStore bool) *fixture {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(site.Close)

	conf := config.Default()
	conf.BrowserConfig.Engine = config.EngineStatic
	conf.BrowserConfig.Timeout = 5 * time.Second

	logger := zap.NewNop()
	engine := htmldom.NewEngine(htmldom.Params{Config: conf, Logger: logger})
	require.NoError(t, engine.Launch(context.Background()))

	params := usecase.Params{
		Logger:   logger,
		Config:   conf,
		Engine:   engine,
		Scanner:  scanner.NewScanner(scanner.Params{Engine: engine, Config: conf, Logger: logger}),
		Executor: executor.NewExecutor(executor.Params{Engine: engine, Config: conf, Logger: logger}),
	}

	if withStore {
		store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "docs.db"), logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		params.Store = store
	}

	server := NewServer(Params{Config: conf, Logger: logger, Usecase: usecase.NewUsecase(params)})

	api := httptest.NewServer(server.Handler())
	t.Cleanup(api.Close)

	return &fixture{site: site, api: api}
}

func (f *fixture) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Post(f.api.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)

	return read(t, resp)
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(f.api.URL + path)
	require.NoError(t, err)

	return read(t, resp)
}

func read(t *testing.T, resp *http.Response) (*http.Response, []byte) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()

	var out errorResponse
	require.NoError(t, json.Unmarshal(body, &out), string(body))

	return out.Error.Code
}

func TestScan(t *testing.T) {
	f := newFixture(t, false)

	resp, body := f.post(t, "/api/v1/scan", fmt.Sprintf(`{"url":%q}`, f.site.URL))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var res entity.ScanResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, entity.ScanStatusOK, res.Status)
	assert.Equal(t, "Checkout", res.Source.PageTitle)
	assert.Len(t, res.Elements, 2)
}

func TestRejectsMalformedRequests(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown field", "/api/v1/scan", `{"url":"http://x.test","depth":2}`, http.StatusBadRequest, apperr.CodeMalformedInput},
		{"missing url", "/api/v1/synthesize", `{}`, http.StatusBadRequest, apperr.CodeMalformedInput},
		{"wrong kind", "/api/v1/scan", `{"kind":"run","url":"http://x.test"}`, http.StatusBadRequest, apperr.CodeMalformedInput},
		{"unknown action", "/api/v1/interact", `{"target":{"category":"button"},"action":"swipe"}`, http.StatusBadRequest, apperr.CodeUnsupportedAction},
		{"no run source", "/api/v1/run", `{"test_ids":["TC_001"]}`, http.StatusBadRequest, apperr.CodeMalformedInput},
		{"unknown kind", "/api/v1/requests", `{"kind":"crawl"}`, http.StatusBadRequest, apperr.CodeMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.post(t, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, errorCode(t, body))
		})
	}
}

func TestSynthesizeAndDocuments(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.post(t, "/api/v1/synthesize", fmt.Sprintf(`{"url":%q,"save":true}`, f.site.URL))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var gen entity.Generation
	require.NoError(t, json.Unmarshal(body, &gen))
	require.NotNil(t, gen.Document)
	assert.True(t, gen.Saved)
	assert.NotEmpty(t, gen.Document.Cases)

	resp, body = f.get(t, "/api/v1/documents")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []ports.DocumentSummary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, gen.Document.RunID, summaries[0].RunID)

	resp, body = f.get(t, "/api/v1/documents/"+gen.Document.RunID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var byID entity.TestDocument
	require.NoError(t, json.Unmarshal(body, &byID))
	assert.Equal(t, gen.Document.Cases, byID.Cases)

	resp, _ = f.get(t, "/api/v1/documents/latest?url="+url.QueryEscape(gen.Document.Source.URL))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.get(t, "/api/v1/documents/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperr.CodeNotFound, errorCode(t, body))

	resp, _ = f.get(t, "/api/v1/documents?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.post(t, "/api/v1/run", fmt.Sprintf(`{"run_id":%q}`, gen.Document.RunID))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var report entity.RunReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, len(gen.Document.Cases), report.Passed)
}

func TestDocumentsWithoutStore(t *testing.T) {
	f := newFixture(t, false)

	resp, body := f.get(t, "/api/v1/documents")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, apperr.CodeUnavailable, errorCode(t, body))
}

func TestDispatch(t *testing.T) {
	f := newFixture(t, false)

	body := fmt.Sprintf(`{"kind":"interact","url":%q,"target":{"category":"button","locators":[{"strategy":"id","value":"//*[@id=\"pay\"]"}],"state":{"is_visible":true,"is_enabled":true}},"action":"click"}`, f.site.URL)

	resp, out := f.post(t, "/api/v1/requests", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(out))

	var res entity.InteractionResult
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, entity.InteractionSuccess, res.Status, res.Error)
	require.NotNil(t, res.Effects)
	require.NotNil(t, res.Effects.Dialog)
	assert.Equal(t, "Paid", res.Effects.Dialog.Message)
}

func TestYAMLResponse(t *testing.T) {
	f := newFixture(t, false)

	resp, body := f.get(t, "/healthz?format=yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "yaml")
	assert.Contains(t, string(body), "engine: static")
	assert.Contains(t, string(body), "ready: true")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.CodeMalformedInput))
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.CodeUnsupportedAction))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.CodeNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(apperr.CodeTimeout))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(apperr.CodeBrowserNotReady))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperr.CodeInternal))
}
