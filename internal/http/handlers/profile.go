package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/http/response"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
	"github.com/yungbote/fitcoach-backend/internal/services"
)

type ProfileHandler struct {
	log      *logger.Logger
	profiles services.ProfileService
}

func NewProfileHandler(log *logger.Logger, profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{log: log.With("handler", "ProfileHandler"), profiles: profiles}
}

// GET /profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, p)
}

// PATCH /profile
// body: ProfileUpdate; a locked profile needs "unlock": true.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	var upd types.ProfileUpdate
	if err := bindJSON(c, &upd); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p, err := h.profiles.Update(c.Request.Context(), userID, upd)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, p)
}

// POST /profile/lock
func (h *ProfileHandler) Lock(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p, err := h.profiles.Lock(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"is_locked": p.IsLocked})
}

// POST /profile/unlock
func (h *ProfileHandler) Unlock(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p, err := h.profiles.Unlock(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"is_locked": p.IsLocked})
}

// GET /profile/versions
func (h *ProfileHandler) ListVersions(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	vs, err := h.profiles.ListVersions(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": vs})
}

// GET /profile/versions/:number
func (h *ProfileHandler) GetVersion(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	n, err := intParam(c, "number")
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	v, err := h.profiles.GetVersion(c.Request.Context(), userID, n)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, v)
}
