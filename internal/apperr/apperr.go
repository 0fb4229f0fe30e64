// Package apperr defines the typed failures that cross pipeline boundaries.
package apperr

import (
	"errors"
	"net/http"

	"github.com/noteflow/noteflow/internal/locale"
)

// Kind classifies a failure.
type Kind string

const (
	KindInputInvalid             Kind = "INPUT_INVALID"              // 400
	KindNotFound                 Kind = "NOT_FOUND"                  // 404
	KindContentAcquisitionFailed Kind = "CONTENT_ACQUISITION_FAILED" // 502
	KindEnhancementFailed        Kind = "ENHANCEMENT_FAILED"         // 502
	KindToolExecutionFailed      Kind = "TOOL_EXECUTION_FAILED"      // 500
)

// Status returns the HTTP status the API reports for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInputInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindContentAcquisitionFailed, KindEnhancementFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed failure carrying a locale-resolved message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputInvalid reports a missing or malformed input. No stage has run.
func NewInputInvalid(loc locale.Locale, key locale.Key, params map[string]any) *Error {
	return &Error{Kind: KindInputInvalid, Message: locale.T(loc, key, params)}
}

// NewNotFound reports a note that does not exist or is not the caller's.
func NewNotFound(loc locale.Locale, err error) *Error {
	return &Error{Kind: KindNotFound, Message: locale.T(loc, locale.ErrNoteNotFound, nil), Err: err}
}

// NewContentAcquisitionFailed reports a failed transcription, OCR, video
// transcript fetch or document parse.
func NewContentAcquisitionFailed(loc locale.Locale, key locale.Key, err error) *Error {
	return &Error{Kind: KindContentAcquisitionFailed, Message: withCause(loc, key, err), Err: err}
}

// NewEnhancementFailed reports a failed summary or insights stage.
func NewEnhancementFailed(loc locale.Locale, key locale.Key, err error) *Error {
	return &Error{Kind: KindEnhancementFailed, Message: withCause(loc, key, err), Err: err}
}

// NewToolExecutionFailed reports a failed tool call inside the model loop.
func NewToolExecutionFailed(loc locale.Locale, tool string, err error) *Error {
	return &Error{
		Kind:    KindToolExecutionFailed,
		Message: locale.T(loc, locale.ErrToolFailed, map[string]any{"name": tool, "message": causeText(err)}),
		Err:     err,
	}
}

func withCause(loc locale.Locale, key locale.Key, err error) string {
	return locale.T(loc, key, map[string]any{"message": causeText(err)})
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
