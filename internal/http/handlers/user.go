package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fitcoach-backend/internal/http/response"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
	"github.com/yungbote/fitcoach-backend/internal/services"
)

type UserHandler struct {
	log   *logger.Logger
	users services.UserService
}

func NewUserHandler(log *logger.Logger, users services.UserService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), users: users}
}

// GET /me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	info, err := h.users.GetInfo(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, info)
}

// PATCH /me/name
// body: { "first_name": "...", "last_name": "..." }
func (h *UserHandler) ChangeName(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	u, err := h.users.UpdateName(c.Request.Context(), userID, req.FirstName, req.LastName)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"first_name": u.FirstName, "last_name": u.LastName})
}

// DELETE /me
func (h *UserHandler) Delete(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	counts, err := h.users.Delete(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": counts})
}
