package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fitcoach-backend/internal/http/response"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
	"github.com/yungbote/fitcoach-backend/internal/services"
)

type OnboardingHandler struct {
	log        *logger.Logger
	onboarding services.OnboardingService
}

func NewOnboardingHandler(log *logger.Logger, onboarding services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{log: log.With("handler", "OnboardingHandler"), onboarding: onboarding}
}

// POST /onboarding/start
// body: { "agent_type": "fitness_assessment" } (optional)
func (h *OnboardingHandler) Start(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	var req struct {
		AgentType string `json:"agent_type"`
	}
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			response.RespondError(c, h.log, err)
			return
		}
	}
	st, err := h.onboarding.Start(c.Request.Context(), userID, req.AgentType)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, st)
}

// GET /onboarding/state
func (h *OnboardingHandler) GetState(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	st, err := h.onboarding.GetState(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	if st == nil {
		response.RespondError(c, h.log, apierr.StateNotFound(userID.String()))
		return
	}
	response.RespondOK(c, st)
}

// POST /onboarding/step
// body: { "step": 1, "data": {...}, "agent_type": "workout" }
func (h *OnboardingHandler) SaveStep(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	var req struct {
		Step      int             `json:"step"`
		Data      json.RawMessage `json:"data"`
		AgentType string          `json:"agent_type"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	res, err := h.onboarding.SaveStep(c.Request.Context(), userID, req.Step, req.Data, req.AgentType)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /onboarding/progress
func (h *OnboardingHandler) GetProgress(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p, err := h.onboarding.GetProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, p)
}

// POST /onboarding/complete
func (h *OnboardingHandler) Complete(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p, err := h.onboarding.Complete(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": p})
}

// POST /onboarding/regress
// body: { "to_state": 3 }
func (h *OnboardingHandler) Regress(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	var req struct {
		ToState int `json:"to_state"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	st, err := h.onboarding.Regress(c.Request.Context(), userID, req.ToState)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, st)
}

// PUT /onboarding/agent-context/:agent
// body: arbitrary JSON object merged into the agent's bucket
func (h *OnboardingHandler) SaveAgentContext(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	var data map[string]any
	if err := bindJSON(c, &data); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	bucket, err := h.onboarding.SaveAgentContext(c.Request.Context(), userID, c.Param("agent"), data)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"agent": c.Param("agent"), "context": bucket})
}

// GET /onboarding/verify
func (h *OnboardingHandler) Verify(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	res, err := h.onboarding.Verify(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}
