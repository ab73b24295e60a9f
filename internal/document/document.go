// Package document reads and writes TestDocuments and other results as JSON
// or YAML. Decoding is strict: unknown keys are rejected.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"web-testgen/internal/entity"
	"web-testgen/pkg/apperr"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFor picks the format from a file extension. Anything that is not
// .yaml or .yml is JSON.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func Extension(format string) string {
	if format == FormatYAML {
		return ".yaml"
	}

	return ".json"
}

// Encode writes v in the given format.
func Encode(w io.Writer, format string, v any) error {
	const op = "Encode"

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)

		if err := enc.Encode(v); err != nil {
			return encodeError(op, err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return encodeError(op, err)
		}

		if err := enc.Close(); err != nil {
			return encodeError(op, err)
		}
	default:
		return apperr.MalformedInputError(op, "format", fmt.Errorf("unknown format %q", format))
	}

	return nil
}

// Decode strictly reads one value of the given format into v.
func Decode(r io.Reader, format string, v any) error {
	const op = "Decode"

	switch format {
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()

		if err := dec.Decode(v); err != nil {
			return apperr.MalformedInputError(op, "document", err)
		}

		if dec.More() {
			return apperr.MalformedInputError(op, "document", errors.New("trailing data after document"))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)

		if err := dec.Decode(v); err != nil {
			return apperr.MalformedInputError(op, "document", err)
		}
	default:
		return apperr.MalformedInputError(op, "format", fmt.Errorf("unknown format %q", format))
	}

	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(format string, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, format, v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeDocument reads a TestDocument and checks it.
func DecodeDocument(r io.Reader, format string) (*entity.TestDocument, error) {
	var doc entity.TestDocument
	if err := Decode(r, format, &doc); err != nil {
		return nil, err
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

var testIDPattern = regexp.MustCompile(`^TC_[0-9]{3,}$`)

// Validate checks the fields the runner and the code generator rely on.
func Validate(doc *entity.TestDocument) error {
	const op = "Validate"

	if doc.RunID != "" {
		if _, err := uuid.Parse(doc.RunID); err != nil {
			return apperr.MalformedInputError(op, "run_id", err)
		}
	}

	seen := make(map[string]struct{}, len(doc.Cases))
	for i, tc := range doc.Cases {
		field := fmt.Sprintf("cases[%d]", i)

		if tc.TestID == "" {
			return apperr.MalformedInputError(op, field+".test_id", errors.New("missing test_id"))
		}

		if !testIDPattern.MatchString(tc.TestID) {
			return apperr.MalformedInputError(op, field+".test_id", fmt.Errorf("test_id %q does not match TC_###", tc.TestID))
		}

		if _, dup := seen[tc.TestID]; dup {
			return apperr.MalformedInputError(op, field+".test_id", fmt.Errorf("duplicate test_id %q", tc.TestID))
		}

		seen[tc.TestID] = struct{}{}

		if !tc.Action.Valid() {
			return apperr.Wrap(op, apperr.CodeUnsupportedAction, fmt.Errorf("unknown action %q", tc.Action), map[string]any{
				apperr.MetaField:  field + ".action",
				apperr.MetaReason: "unknown_action",
			})
		}

		if tc.Target.Category != "" && !tc.Target.Category.Valid() {
			return apperr.MalformedInputError(op, field+".target.category", fmt.Errorf("unknown category %q", tc.Target.Category))
		}
	}

	return nil
}

// WriteFile writes v to path in the format its extension implies.
func WriteFile(path string, v any) error {
	const op = "WriteFile"

	data, err := Marshal(FormatFor(path), v)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return writeError(op, path, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return writeError(op, path, err)
	}

	return nil
}

func ReadFile(path string) (*entity.TestDocument, error) {
	const op = "ReadFile"

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "open_failed",
			apperr.MetaStage:  apperr.StagePersistence,
		})
	}
	defer f.Close()

	return DecodeDocument(f, FormatFor(path))
}

func encodeError(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: "encode_failed",
		apperr.MetaStage:  apperr.StagePersistence,
	})
}

func writeError(op, path string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: "write_failed",
		apperr.MetaStage:  apperr.StagePersistence,
		apperr.MetaField:  path,
	})
}
