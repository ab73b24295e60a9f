package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"web-testgen/internal/document"
	"web-testgen/pkg/apperr"

	"go.uber.org/zap"
)

type errorBody struct {
	Code    string `json:"code"             yaml:"code"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message string `json:"message"          yaml:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error" yaml:"error"`
}

// StatusFor maps an error code onto an HTTP status.
func StatusFor(code string) int {
	switch code {
	case apperr.CodeMalformedInput, apperr.CodeUnsupportedAction:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeTimeout:
		return http.StatusGatewayTimeout
	case apperr.CodeUnavailable, apperr.CodeBrowserNotReady:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := StatusFor(code)

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	s.respond(w, r, status, errorResponse{Error: errorBody{
		Code:    code,
		Reason:  apperr.ReasonOf(err),
		Message: err.Error(),
	}})
}

// respond writes v as JSON, or as YAML when the client asks for it with
// ?format=yaml or an Accept header.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	format := responseFormat(r)

	contentType := "application/json; charset=utf-8"
	if format == document.FormatYAML {
		contentType = "application/yaml; charset=utf-8"
	}

	body, err := document.Marshal(format, v)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func responseFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f == document.FormatYAML {
		return document.FormatYAML
	}

	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "yaml") {
		return document.FormatYAML
	}

	return document.FormatJSON
}

func malformedQuery(field, value string) error {
	return apperr.MalformedInputError("httpapi", field, fmt.Errorf("invalid query parameter %s=%q", field, value))
}
