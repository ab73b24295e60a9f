// Package request defines the requests every surface accepts. Each kind has a
// fixed field set; decoding rejects unknown fields and Validate rejects
// incomplete requests with a malformed_input error.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"web-testgen/internal/document"
	"web-testgen/internal/entity"
	"web-testgen/pkg/apperr"
)

type Kind string

const (
	KindScan       Kind = "scan"
	KindSynthesize Kind = "synthesize"
	KindInteract   Kind = "interact"
	KindRun        Kind = "run"
)

const maxBody = 8 << 20

type Request interface {
	RequestKind() Kind
	Validate() error
}

// Scan lists the interactive elements of a page.
type Scan struct {
	Kind Kind   `json:"kind,omitempty"`
	URL  string `json:"url"`
}

// Synthesize scans a page and turns its inventory into a TestDocument.
type Synthesize struct {
	Kind Kind   `json:"kind,omitempty"`
	URL  string `json:"url"`
	Save bool   `json:"save,omitempty"`
}

// Interact performs one action on one target. When URL is set the page is
// loaded first.
type Interact struct {
	Kind       Kind          `json:"kind,omitempty"`
	URL        string        `json:"url,omitempty"`
	Target     entity.Target `json:"target"`
	Action     entity.Action `json:"action"`
	InputValue *string       `json:"input_value,omitempty"`
}

// Run replays a TestDocument. Exactly one of RunID, URL and Document picks
// the document; TestIDs narrows the cases.
type Run struct {
	Kind     Kind                 `json:"kind,omitempty"`
	RunID    string               `json:"run_id,omitempty"`
	URL      string               `json:"url,omitempty"`
	Document *entity.TestDocument `json:"document,omitempty"`
	TestIDs  []string             `json:"test_ids,omitempty"`
}

func (Scan) RequestKind() Kind       { return KindScan }
func (Synthesize) RequestKind() Kind { return KindSynthesize }
func (Interact) RequestKind() Kind   { return KindInteract }
func (Run) RequestKind() Kind        { return KindRun }

func (r Scan) Validate() error {
	return validateURL("Scan", "url", r.URL, true)
}

func (r Synthesize) Validate() error {
	return validateURL("Synthesize", "url", r.URL, true)
}

func (r Interact) Validate() error {
	const op = "Interact"

	if err := validateURL(op, "url", r.URL, false); err != nil {
		return err
	}

	if r.Action == "" {
		return apperr.MalformedInputError(op, "action", errors.New("missing action"))
	}

	if !r.Action.Valid() {
		return apperr.Wrap(op, apperr.CodeUnsupportedAction, fmt.Errorf("unknown action %q", r.Action), map[string]any{
			apperr.MetaField:  "action",
			apperr.MetaReason: "unknown_action",
		})
	}

	if !r.Target.Category.Valid() {
		return apperr.MalformedInputError(op, "target.category", fmt.Errorf("unknown category %q", r.Target.Category))
	}

	return nil
}

func (r Run) Validate() error {
	const op = "Run"

	sources := 0
	for _, set := range []bool{r.RunID != "", r.URL != "", r.Document != nil} {
		if set {
			sources++
		}
	}

	if sources != 1 {
		return apperr.MalformedInputError(op, "run_id", errors.New("exactly one of run_id, url and document is required"))
	}

	if err := validateURL(op, "url", r.URL, false); err != nil {
		return err
	}

	if r.Document != nil {
		if err := document.Validate(r.Document); err != nil {
			return err
		}
	}

	for i, id := range r.TestIDs {
		if id == "" {
			return apperr.MalformedInputError(op, fmt.Sprintf("test_ids[%d]", i), errors.New("empty test id"))
		}
	}

	return nil
}

// Parse reads a request whose kind is named by its "kind" field.
func Parse(r io.Reader) (Request, error) {
	const op = "Parse"

	body, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return nil, apperr.MalformedInputError(op, "body", err)
	}

	var envelope struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperr.MalformedInputError(op, "body", err)
	}

	switch envelope.Kind {
	case KindScan:
		return parseAs[Scan](body)
	case KindSynthesize:
		return parseAs[Synthesize](body)
	case KindInteract:
		return parseAs[Interact](body)
	case KindRun:
		return parseAs[Run](body)
	case "":
		return nil, apperr.MalformedInputError(op, "kind", errors.New("missing kind"))
	default:
		return nil, apperr.MalformedInputError(op, "kind", fmt.Errorf("unknown kind %q", envelope.Kind))
	}
}

func parseAs[T Request](body []byte) (Request, error) {
	req, err := decodeBytes[T](body)
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Decode reads one request of a known kind, strictly, and validates it.
func Decode[T Request](r io.Reader) (T, error) {
	const op = "Decode"

	var zero T

	body, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return zero, apperr.MalformedInputError(op, "body", err)
	}

	return decodeBytes[T](body)
}

func decodeBytes[T Request](body []byte) (T, error) {
	const op = "Decode"

	var req T

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		return req, apperr.MalformedInputError(op, "body", err)
	}

	if dec.More() {
		return req, apperr.MalformedInputError(op, "body", errors.New("trailing data after request"))
	}

	if err := checkKind(req); err != nil {
		return req, err
	}

	if err := req.Validate(); err != nil {
		return req, err
	}

	return req, nil
}

func checkKind(req Request) error {
	var kind Kind

	switch r := req.(type) {
	case Scan:
		kind = r.Kind
	case Synthesize:
		kind = r.Kind
	case Interact:
		kind = r.Kind
	case Run:
		kind = r.Kind
	}

	if kind != "" && kind != req.RequestKind() {
		return apperr.MalformedInputError("Decode", "kind", fmt.Errorf("kind %q does not match %q", kind, req.RequestKind()))
	}

	return nil
}

func validateURL(op, field, raw string, required bool) error {
	if raw == "" {
		if required {
			return apperr.MalformedInputError(op, field, errors.New("missing url"))
		}

		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return apperr.MalformedInputError(op, field, err)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return apperr.MalformedInputError(op, field, fmt.Errorf("url %q has no host", raw))
		}
	case "file", "about":
	default:
		return apperr.MalformedInputError(op, field, fmt.Errorf("unsupported url scheme %q", u.Scheme))
	}

	return nil
}
