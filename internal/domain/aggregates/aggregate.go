// Package aggregates declares the write boundaries of the coaching domain:
// onboarding progression, profile lock and versioning, and account deletion.
// Implementations live in internal/data/aggregates.
package aggregates

import (
	"errors"
	"fmt"
)

// Contract names an aggregate, the tables it writes and the rules it holds
// across them.
type Contract struct {
	Name       string
	Tables     []string
	Invariants []string
}

func (c Contract) Writes(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}

type Aggregate interface {
	Contract() Contract
}

type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is a storage-level aggregate failure. Domain rule failures use
// *apierr.Error instead.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.Code)
	if e.Message != "" {
		s = e.Message + " [" + s + "]"
	}
	if e.Op != "" {
		s = fmt.Sprintf("%s: %s", e.Op, s)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}

// Wrap tags err with code, keeping it as the cause.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
