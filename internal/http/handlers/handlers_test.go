package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fitcoach-backend/internal/orchestrator"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/ctxutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type fakeRouter struct {
	mu       sync.Mutex
	reqs     []orchestrator.QueryRequest
	events   []orchestrator.StreamEvent
	err      error
	warmed   int
	closed   int
	response *orchestrator.AgentResponse
}

func (r *fakeRouter) RouteQuery(_ context.Context, req orchestrator.QueryRequest) (*orchestrator.AgentResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return r.response, nil
}

func (r *fakeRouter) StreamQuery(_ context.Context, req orchestrator.QueryRequest, emit func(orchestrator.StreamEvent) error) error {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	events, err := r.events, r.err
	r.mu.Unlock()
	for _, ev := range events {
		if e := emit(ev); e != nil {
			return e
		}
	}
	return err
}

func (r *fakeRouter) WarmUp(context.Context) {
	r.mu.Lock()
	r.warmed++
	r.mu.Unlock()
}

func (r *fakeRouter) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func withUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != uuid.Nil {
			c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), id))
		}
		c.Next()
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func chatEngine(userID uuid.UUID, router Router) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withUser(userID))
	h := NewChatHandler(logger.Nop(), router)
	r.POST("/api/chat", h.Query)
	r.POST("/api/chat/stream", h.Stream)
	return r
}

func TestChatQuery(t *testing.T) {
	userID := uuid.New()
	router := &fakeRouter{response: &orchestrator.AgentResponse{Content: "Rest today.", AgentType: "general", ToolsUsed: []string{}}}
	rec := do(chatEngine(userID, router), http.MethodPost, "/api/chat", `{"query":"Should I train?","agent_type":"general"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got orchestrator.AgentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Rest today.", got.Content)
	require.Len(t, router.reqs, 1)
	assert.Equal(t, userID, router.reqs[0].UserID)
	assert.Equal(t, "Should I train?", router.reqs[0].Query)
}

func TestChatQueryErrors(t *testing.T) {
	router := &fakeRouter{err: apierr.AccessDenied("complete onboarding first")}
	rec := do(chatEngine(uuid.New(), router), http.MethodPost, "/api/chat", `{"query":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_code":"access_denied"`)

	rec = do(chatEngine(uuid.New(), router), http.MethodPost, "/api/chat", `{"query":`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(chatEngine(uuid.Nil, router), http.MethodPost, "/api/chat", `{"query":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatStreamWritesEvents(t *testing.T) {
	router := &fakeRouter{events: []orchestrator.StreamEvent{
		{Type: orchestrator.EventChunk, Content: "Hel", MessageID: "m1"},
		{Type: orchestrator.EventChunk, Content: "lo", MessageID: "m1"},
		{Type: orchestrator.EventComplete, MessageID: "m1", Metrics: &orchestrator.StreamMetrics{MessageID: "m1", ChunksSent: 2, TotalChars: 5}},
	}}
	rec := do(chatEngine(uuid.New(), router), http.MethodPost, "/api/chat/stream", `{"query":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:chunk"))
	assert.Equal(t, 1, strings.Count(body, "event:complete"))
	assert.Contains(t, body, `"chunks_sent":2`)
	assert.Less(t, strings.Index(body, "event:chunk"), strings.Index(body, "event:complete"))
}

func TestChatStreamErrorBeforeFirstEvent(t *testing.T) {
	router := &fakeRouter{err: apierr.Validation("query", "query is required")}
	rec := do(chatEngine(uuid.New(), router), http.MethodPost, "/api/chat/stream", `{"query":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"query"`)
}

func TestChatStreamErrorAfterEvents(t *testing.T) {
	router := &fakeRouter{
		events: []orchestrator.StreamEvent{
			{Type: orchestrator.EventChunk, Content: "Par"},
			{Type: orchestrator.EventError, ErrorType: orchestrator.ErrorTypeTimeout, Error: "request timed out"},
		},
		err: apierr.Timeout(context.DeadlineExceeded),
	}
	rec := do(chatEngine(uuid.New(), router), http.MethodPost, "/api/chat/stream", `{"query":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event:error")
	assert.NotContains(t, rec.Body.String(), "error_code")
}

func voiceEngine(userID uuid.UUID, h *VoiceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withUser(userID))
	r.POST("/api/voice/sessions", h.Open)
	r.POST("/api/voice/sessions/:id/query", h.Query)
	r.DELETE("/api/voice/sessions/:id", h.Close)
	return r
}

func TestVoiceSessionLifecycle(t *testing.T) {
	owner := uuid.New()
	router := &fakeRouter{response: &orchestrator.AgentResponse{Content: "Short answer."}}
	h := NewVoiceHandler(logger.Nop(), func() VoiceRouter { return router })

	rec := do(voiceEngine(owner, h), http.MethodPost, "/api/voice/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var opened struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	assert.Equal(t, 1, router.warmed)
	assert.Equal(t, 1, h.Sessions())

	path := "/api/voice/sessions/" + opened.SessionID
	rec = do(voiceEngine(owner, h), http.MethodPost, path+"/query", `{"query":"quick tip"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Short answer.")

	rec = do(voiceEngine(uuid.New(), h), http.MethodPost, path+"/query", `{"query":"quick tip"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(voiceEngine(owner, h), http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, router.closed)
	assert.Equal(t, 0, h.Sessions())
}

func TestVoiceReap(t *testing.T) {
	router := &fakeRouter{}
	h := NewVoiceHandler(logger.Nop(), func() VoiceRouter { return router })
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	do(voiceEngine(uuid.New(), h), http.MethodPost, "/api/voice/sessions", "")
	now = now.Add(10 * time.Minute)
	do(voiceEngine(uuid.New(), h), http.MethodPost, "/api/voice/sessions", "")

	assert.Equal(t, 1, h.Reap(5*time.Minute))
	assert.Equal(t, 1, h.Sessions())
	assert.Equal(t, 1, router.closed)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{errors.New("connection refused"), http.StatusServiceUnavailable},
	} {
		r := gin.New()
		r.GET("/readyz", NewHealthHandler(pinger{tc.err}).Ready)
		rec := do(r, http.MethodGet, "/readyz", "")
		assert.Equal(t, tc.status, rec.Code)
	}
}
