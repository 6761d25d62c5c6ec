package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/ctxutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Detail    string   `json:"detail"`
	ErrorCode string   `json:"error_code"`
	Field     string   `json:"field,omitempty"`
	Missing   []string `json:"missing,omitempty"`
}

// statusClientClosed is what nginx reports when the client hangs up first.
const statusClientClosed = 499

// Envelope maps err to a status and body. Untyped errors become unexpected_error.
func Envelope(err error) (int, ErrorEnvelope) {
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ErrorEnvelope{
			Detail:    ae.Detail(),
			ErrorCode: ae.Code,
			Field:     ae.Field,
			Missing:   ae.Missing,
		}
	}
	if errors.Is(err, context.Canceled) {
		return statusClientClosed, ErrorEnvelope{Detail: "request cancelled", ErrorCode: "cancelled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorEnvelope{Detail: "request timed out", ErrorCode: apierr.CodeTimeout}
	}
	return http.StatusInternalServerError, ErrorEnvelope{Detail: "unexpected error", ErrorCode: apierr.CodeUnexpected}
}

// RespondError renders err and aborts the chain. 5xx causes are logged.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	status, body := Envelope(err)
	if status >= 500 && log != nil {
		fields := append([]any{
			"path", c.FullPath(),
			"status", status,
			"error_code", body.ErrorCode,
			"error", err,
		}, ctxutil.LogFields(c.Request.Context())...)
		log.Error("request failed", fields...)
	}
	c.AbortWithStatusJSON(status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
