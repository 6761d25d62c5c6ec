package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrConflict   = errors.New("aggregate conflict")
	ErrRetryable  = errors.New("aggregate retryable")

	// ErrStaleState marks a conflict from the onboarding_state version CAS,
	// as opposed to a unique-key conflict.
	ErrStaleState = errors.New("onboarding state version changed")
)

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }
func InvariantError(msg string) error  { return tagged(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tagged(ErrConflict, msg) }
func RetryableError(msg string) error  { return tagged(ErrRetryable, msg) }

func StaleStateError(msg string) error {
	return errors.Join(ErrConflict, ErrStaleState, errors.New(strings.TrimSpace(msg)))
}

func tagged(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

// Checked in order; the first match wins.
var sentinelCodes = []struct {
	target error
	code   domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// Postgres SQLSTATEs that carry aggregate meaning.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// MapError classifies a storage failure. *apierr.Error and *domainagg.Error
// values are returned unchanged. SQLite has no typed errors, so its
// messages are matched as a last resort.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *domainagg.Error, *apierr.Error:
		return err
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.target) {
			return domainagg.Wrap(sc.code, op, err)
		}
	}
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return domainagg.Wrap(code, op, err)
		}
	}
	return domainagg.Wrap(codeFromMessage(err.Error()), op, err)
}

func codeFromMessage(msg string) domainagg.ErrorCode {
	msg = strings.ToLower(msg)
	for _, s := range []string{"duplicate key", "unique constraint failed", "already exists"} {
		if strings.Contains(msg, s) {
			return domainagg.CodeConflict
		}
	}
	for _, s := range []string{"deadlock", "serialization", "database is locked", "timeout", "temporar"} {
		if strings.Contains(msg, s) {
			return domainagg.CodeRetryable
		}
	}
	return domainagg.CodeInternal
}
