package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// toAPIError turns aggregate and repo failures into the typed errors callers see.
// Errors that already carry an application code pass through.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierr.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Timeout(err)
	}
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		err = aggregates.MapError("service", err)
		if !errors.As(err, &aggErr) {
			return apierr.Unexpected(err)
		}
	}
	switch aggErr.Code {
	case domainagg.CodeConflict:
		return apierr.Conflict("concurrent update; retry", err)
	case domainagg.CodeRetryable, domainagg.CodeInternal:
		return apierr.Storage(err)
	case domainagg.CodeValidation:
		return apierr.Validation("", "%s", strings.TrimSpace(aggErr.Message))
	}
	return apierr.Unexpected(err)
}
