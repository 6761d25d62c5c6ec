package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation              = "validation_error"
	CodeStateNotFound           = "state_not_found"
	CodeUserNotFound            = "user_not_found"
	CodeNotFound                = "not_found"
	CodeAlreadyCompleted        = "already_completed"
	CodeOnboardingIncomplete    = "onboarding_incomplete"
	CodeAccessDenied            = "access_denied"
	CodeProfileLocked           = "profile_locked"
	CodeImmutableRecord         = "immutable_record"
	CodeMaterializationConflict = "materialization_conflict"
	CodeConflict                = "conflict"
	CodeStorage                 = "storage_error"
	CodeTimeout                 = "timeout"
	CodeClassificationFailed    = "classification_failed"
	CodeUnauthorized            = "unauthorized"
	CodeUnexpected              = "unexpected_error"
)

// Error is the typed application error. Every failure that reaches a caller is one
// of these; the HTTP layer renders it as an error envelope.
type Error struct {
	Status  int
	Code    string
	Message string
	Field   string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the human-readable message exposed to callers; causes stay internal.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(field, format string, args ...any) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func StateNotFound(userID string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeStateNotFound, Message: "onboarding state not found for user " + userID}
}

func UserNotFound(userID string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeUserNotFound, Message: "user profile not found for user " + userID}
}

func NotFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func AlreadyCompleted() *Error {
	return &Error{Status: http.StatusConflict, Code: CodeAlreadyCompleted, Message: "onboarding already completed"}
}

func OnboardingIncomplete(missing []string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeOnboardingIncomplete,
		Message: "onboarding incomplete",
		Missing: append([]string(nil), missing...),
	}
}

func AccessDenied(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeAccessDenied, Message: msg}
}

func ProfileLocked() *Error {
	return &Error{Status: http.StatusLocked, Code: CodeProfileLocked, Message: "profile is locked; retry with unlock=true to apply changes"}
}

func ImmutableRecord(what string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeImmutableRecord, Message: what + " is immutable"}
}

func MaterializationConflict() *Error {
	return &Error{Status: http.StatusConflict, Code: CodeMaterializationConflict, Message: "profile already exists"}
}

func Conflict(msg string, err error) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: msg, Err: err}
}

func Storage(err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: CodeStorage, Message: "storage failure", Err: err}
}

func Timeout(err error) *Error {
	return &Error{Status: http.StatusGatewayTimeout, Code: CodeTimeout, Message: "request timed out", Err: err}
}

func ClassificationFailed(err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: CodeClassificationFailed, Message: "query classification failed", Err: err}
}

func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func Unexpected(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeUnexpected, Message: "unexpected error", Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// CodeOf returns the application code carried by err, or "" when err is untyped.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
