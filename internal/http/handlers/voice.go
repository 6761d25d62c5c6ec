package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/http/response"
	"github.com/yungbote/fitcoach-backend/internal/orchestrator"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// VoiceRouter is a session-scoped router that keeps its agents warm.
type VoiceRouter interface {
	Router
	WarmUp(ctx context.Context)
	Close() error
}

type voiceSession struct {
	owner    uuid.UUID
	router   VoiceRouter
	mu       sync.Mutex
	lastUsed time.Time
}

func (s *voiceSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *voiceSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// VoiceHandler keeps one voice router per open session.
type VoiceHandler struct {
	log       *logger.Logger
	newRouter func() VoiceRouter
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*voiceSession
}

func NewVoiceHandler(log *logger.Logger, newRouter func() VoiceRouter) *VoiceHandler {
	return &VoiceHandler{
		log:       log.With("handler", "VoiceHandler"),
		newRouter: newRouter,
		now:       time.Now,
		sessions:  map[uuid.UUID]*voiceSession{},
	}
}

// POST /voice/sessions
func (h *VoiceHandler) Open(c *gin.Context) {
	userID, err := callerID(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	router := h.newRouter()
	router.WarmUp(c.Request.Context())

	id := uuid.New()
	h.mu.Lock()
	h.sessions[id] = &voiceSession{owner: userID, router: router, lastUsed: h.now()}
	h.mu.Unlock()
	h.log.Info("voice session opened", "session_id", id, "user_id", userID)
	response.RespondCreated(c, gin.H{"session_id": id.String()})
}

func (h *VoiceHandler) session(c *gin.Context) (*voiceSession, uuid.UUID, error) {
	userID, err := callerID(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, uuid.Nil, apierr.Validation("id", "invalid session id")
	}
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok || s.owner != userID {
		return nil, uuid.Nil, apierr.NotFound("voice session")
	}
	s.touch(h.now())
	return s, id, nil
}

func (h *VoiceHandler) request(c *gin.Context, s *voiceSession) (orchestrator.QueryRequest, error) {
	var body chatRequest
	if err := bindJSON(c, &body); err != nil {
		return orchestrator.QueryRequest{}, err
	}
	return orchestrator.QueryRequest{
		UserID:         s.owner,
		Query:          body.Query,
		AgentType:      body.AgentType,
		OnboardingMode: body.OnboardingMode,
		MessageID:      body.MessageID,
	}, nil
}

// POST /voice/sessions/:id/query
func (h *VoiceHandler) Query(c *gin.Context) {
	s, _, err := h.session(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	req, err := h.request(c, s)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	resp, err := s.router.RouteQuery(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, resp)
}

// POST /voice/sessions/:id/stream
func (h *VoiceHandler) Stream(c *gin.Context) {
	s, _, err := h.session(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	req, err := h.request(c, s)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	streamSSE(c, h.log, s.router, req)
}

// DELETE /voice/sessions/:id
func (h *VoiceHandler) Close(c *gin.Context) {
	_, id, err := h.session(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	h.remove(id)
	response.RespondOK(c, gin.H{"closed": id.String()})
}

func (h *VoiceHandler) remove(id uuid.UUID) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		_ = s.router.Close()
	}
}

// Reap closes sessions idle for longer than maxIdle and returns how many.
func (h *VoiceHandler) Reap(maxIdle time.Duration) int {
	cutoff := h.now().Add(-maxIdle)
	var stale []uuid.UUID
	h.mu.RLock()
	for id, s := range h.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()
	for _, id := range stale {
		h.remove(id)
	}
	if len(stale) > 0 {
		h.log.Info("voice sessions reaped", "count", len(stale))
	}
	return len(stale)
}

// RunReaper calls Reap every interval until ctx ends, then closes every session.
func (h *VoiceHandler) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Reap(-time.Hour)
			return
		case <-t.C:
			h.Reap(maxIdle)
		}
	}
}

// Sessions reports how many voice sessions are open.
func (h *VoiceHandler) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
