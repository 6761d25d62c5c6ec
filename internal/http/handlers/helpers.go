package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/ctxutil"
)

// callerID returns the authenticated user attached by the auth middleware.
func callerID(c *gin.Context) (uuid.UUID, error) {
	id, ok := ctxutil.UserID(c.Request.Context())
	if !ok {
		return uuid.Nil, apierr.Unauthorized("not authenticated")
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.Validation("body", "invalid request body: %v", err)
	}
	return nil
}

func intParam(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, apierr.Validation(name, "%s must be an integer", name)
	}
	return n, nil
}
