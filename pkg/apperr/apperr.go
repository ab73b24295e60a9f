package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaRunID    = "run_id"
	MetaTestID   = "test_id"
	MetaAction   = "action"
	MetaSelector = "selector"
	MetaURL      = "url"

	StageBrowser     = "browser"
	StageNavigation  = "navigation"
	StageScan        = "scan"
	StageExtraction  = "extraction"
	StageResolve     = "resolve"
	StageInteraction = "interaction"
	StageObserve     = "observe"
	StageSynthesis   = "synthesis"
	StageCodegen     = "codegen"
	StagePersistence = "persistence"
	StageRequest     = "request"

	CodeInternal          = "internal"
	CodeNotFound          = "not_found"
	CodeTimeout           = "timeout"
	CodeUnsupportedAction = "unsupported_action"
	CodeMalformedInput    = "malformed_input"
	CodePartialExtraction = "partial_extraction"
	CodeNotVisible        = "not_visible"
	CodeUnavailable       = "unavailable"
	CodeBrowserNotReady   = "browser_not_ready"
	CodeActionFailed      = "action_failed"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func MalformedInputError(op, field string, err error) error {
	return Wrap(op, CodeMalformedInput, err, map[string]any{
		MetaField:  field,
		MetaReason: "malformed_input",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or
// CodeInternal when err carries no code.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	return CodeInternal
}

// ReasonOf returns the first reason recorded in the chain.
func ReasonOf(err error) string {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return ""
		}

		if reason, ok := appErr.Metadata[MetaReason].(string); ok && reason != "" {
			return reason
		}

		err = appErr.Err
	}

	return ""
}

func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == code {
			return true
		}

		err = appErr.Err
	}

	return false
}
