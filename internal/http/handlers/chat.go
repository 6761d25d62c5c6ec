package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fitcoach-backend/internal/http/response"
	"github.com/yungbote/fitcoach-backend/internal/orchestrator"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// Router answers one query, whole or streamed. *orchestrator.Orchestrator satisfies it.
type Router interface {
	RouteQuery(ctx context.Context, req orchestrator.QueryRequest) (*orchestrator.AgentResponse, error)
	StreamQuery(ctx context.Context, req orchestrator.QueryRequest, emit func(orchestrator.StreamEvent) error) error
}

type chatRequest struct {
	Query          string `json:"query"`
	AgentType      string `json:"agent_type"`
	OnboardingMode bool   `json:"onboarding_mode"`
	MessageID      string `json:"message_id"`
}

type ChatHandler struct {
	log    *logger.Logger
	router Router
}

func NewChatHandler(log *logger.Logger, router Router) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), router: router}
}

func (h *ChatHandler) request(c *gin.Context) (orchestrator.QueryRequest, error) {
	userID, err := callerID(c)
	if err != nil {
		return orchestrator.QueryRequest{}, err
	}
	var body chatRequest
	if err := bindJSON(c, &body); err != nil {
		return orchestrator.QueryRequest{}, err
	}
	return orchestrator.QueryRequest{
		UserID:         userID,
		Query:          body.Query,
		AgentType:      body.AgentType,
		OnboardingMode: body.OnboardingMode,
		MessageID:      body.MessageID,
	}, nil
}

// POST /chat
// body: { "query": "...", "agent_type": "general", "onboarding_mode": false }
func (h *ChatHandler) Query(c *gin.Context) {
	req, err := h.request(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	resp, err := h.router.RouteQuery(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, resp)
}

// POST /chat/stream
// Same body as /chat; answers with text/event-stream.
func (h *ChatHandler) Stream(c *gin.Context) {
	req, err := h.request(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	streamSSE(c, h.log, h.router, req)
}

// streamSSE writes every StreamEvent as one SSE message named after its type.
// Errors raised before the first event are rendered as a JSON envelope.
func streamSSE(c *gin.Context, log *logger.Logger, router Router, req orchestrator.QueryRequest) {
	started := false
	ctx := c.Request.Context()
	err := router.StreamQuery(ctx, req, func(ev orchestrator.StreamEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !started {
			started = true
			c.Writer.Header().Set("Content-Type", "text/event-stream")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
			c.Writer.Header().Set("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		c.SSEvent(ev.Type, ev)
		c.Writer.Flush()
		return nil
	})
	if err != nil && !started {
		response.RespondError(c, log, err)
	}
}
