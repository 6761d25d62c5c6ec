// Package orchestrator routes a user's query to the right agent: it checks
// onboarding access rules, loads the user's context, runs the agent with a
// per-turn deadline and persists the exchange.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/fitcoach-backend/internal/agents"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/domain/chat"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const (
	ModeText  = "text"
	ModeVoice = "voice"

	DefaultTextTimeout  = 30 * time.Second
	DefaultVoiceTimeout = 8 * time.Second
)

// Stream event types.
const (
	EventChunk    = "chunk"
	EventComplete = "complete"
	EventError    = "error"
)

// Error types reported on failed streams besides apierr codes.
const (
	ErrorTypeTimeout   = "timeout"
	ErrorTypeCancelled = "cancelled"
	ErrorTypeAgent     = "agent_error"
)

type QueryRequest struct {
	UserID         uuid.UUID `json:"-"`
	Query          string    `json:"query"`
	AgentType      string    `json:"agent_type,omitempty"`
	OnboardingMode bool      `json:"onboarding_mode"`
	MessageID      string    `json:"message_id,omitempty"`
}

type AgentResponse struct {
	Content   string         `json:"content"`
	AgentType string         `json:"agent_type"`
	ToolsUsed []string       `json:"tools_used"`
	Metadata  map[string]any `json:"metadata"`
}

type StreamMetrics struct {
	MessageID    string   `json:"message_id"`
	AgentType    string   `json:"agent_type"`
	ChunksSent   int      `json:"chunks_sent"`
	TotalChars   int      `json:"total_chars"`
	FirstTokenMS int64    `json:"first_token_ms"`
	DurationMS   int64    `json:"duration_ms"`
	ToolsUsed    []string `json:"tools_used"`
}

type StreamEvent struct {
	Type      string         `json:"type"`
	Content   string         `json:"content,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Metrics   *StreamMetrics `json:"metrics,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type AgentFactory interface {
	New(agentType string) (agents.Agent, error)
}

type UserContextLoader interface {
	Load(ctx context.Context, req LoadRequest) (agents.UserContext, error)
}

// OnboardingGate answers whether onboarding is done and stores onboarding
// conversation turns.
type OnboardingGate interface {
	IsComplete(ctx context.Context, userID uuid.UUID) (bool, error)
	AppendConversation(ctx context.Context, userID uuid.UUID, entries ...types.ConversationEntry) error
}

type ConversationStore interface {
	Create(dbc dbctx.Context, rows []*types.ConversationMessage) ([]*types.ConversationMessage, error)
}

type Config struct {
	Mode         string
	TextTimeout  time.Duration
	VoiceTimeout time.Duration
}

type Deps struct {
	Log           *logger.Logger
	LLM           llm.Client
	Agents        AgentFactory
	Loader        UserContextLoader
	Onboarding    OnboardingGate
	Conversations ConversationStore
}

// Orchestrator serves one mode. A voice orchestrator lives for a session and
// caches agents by type; a text orchestrator builds agents per call.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	mu    sync.Mutex
	cache map[string]agents.Agent
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Mode != ModeVoice {
		cfg.Mode = ModeText
	}
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	if cfg.VoiceTimeout <= 0 {
		cfg.VoiceTimeout = DefaultVoiceTimeout
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Log.With("component", "Orchestrator", "mode", cfg.Mode),
		cache: map[string]agents.Agent{},
	}
}

func (o *Orchestrator) Mode() string { return o.cfg.Mode }

func (o *Orchestrator) voice() bool { return o.cfg.Mode == ModeVoice }

func (o *Orchestrator) timeout() time.Duration {
	if o.voice() {
		return o.cfg.VoiceTimeout
	}
	return o.cfg.TextTimeout
}

// Close drops every cached agent.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.cache = map[string]agents.Agent{}
	o.mu.Unlock()
	return nil
}

// CachedAgents reports how many agents the voice cache holds.
func (o *Orchestrator) CachedAgents() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cache)
}

func (o *Orchestrator) agentFor(agentType string) (agents.Agent, error) {
	if !o.voice() {
		return o.deps.Agents.New(agentType)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if a, ok := o.cache[agentType]; ok {
		observability.Current().IncAgentCache("hit")
		return a, nil
	}
	a, err := o.deps.Agents.New(agentType)
	if err != nil {
		return nil, err
	}
	o.cache[agentType] = a
	observability.Current().IncAgentCache("miss")
	return a, nil
}

// WarmUp primes the provider connection for a voice session with one tiny
// completion. Failures are logged and swallowed.
func (o *Orchestrator) WarmUp(ctx context.Context) {
	if !o.voice() || o.deps.LLM == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()
	uc := agents.NewUserContext(agents.UserContextData{FitnessLevel: defaultFitnessLevel, PrimaryGoal: defaultGoal})
	_, err := o.deps.LLM.Complete(ctx, llm.Request{
		System:          "You are a fitness coach. Reply with one word.",
		Messages:        []llm.Message{{Role: llm.RoleUser, Content: "Hello " + uc.FitnessLevel()}},
		MaxOutputTokens: 8,
	})
	if err != nil {
		o.log.Warn("warm up failed", "error", err)
		return
	}
	o.log.Debug("warm up complete")
}

type turn struct {
	req       QueryRequest
	messageID string
	agent     agents.Agent
	user      agents.UserContext
	log       *logger.Logger
}

func (o *Orchestrator) prepare(ctx context.Context, req QueryRequest) (*turn, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.AgentType = strings.TrimSpace(req.AgentType)
	if req.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("missing user")
	}
	if req.Query == "" {
		return nil, apierr.Validation("query", "query is required")
	}
	completed, err := o.deps.Onboarding.IsComplete(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := CheckAccess(req.OnboardingMode, completed, req.AgentType); err != nil {
		return nil, err
	}
	uc, err := o.deps.Loader.Load(ctx, LoadRequest{UserID: req.UserID, OnboardingMode: req.OnboardingMode, VoiceMode: o.voice()})
	if err != nil {
		return nil, err
	}
	agentType := SelectAgent(req.OnboardingMode, req.AgentType, uc.OnboardingState())
	a, err := o.agentFor(agentType)
	if err != nil {
		return nil, err
	}
	messageID := req.MessageID
	if _, err := uuid.Parse(messageID); err != nil {
		messageID = uuid.NewString()
	}
	return &turn{
		req:       req,
		messageID: messageID,
		agent:     a,
		user:      uc,
		log:       o.log.With("user_id", req.UserID, "message_id", messageID, "agent_type", agentType),
	}, nil
}

func (o *Orchestrator) RouteQuery(ctx context.Context, req QueryRequest) (*AgentResponse, error) {
	ctx, span := observability.StartSpan(ctx, "orchestrator.route",
		attribute.String("mode", o.cfg.Mode),
		attribute.Bool("onboarding_mode", req.OnboardingMode),
	)
	defer span.End()

	t, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	turnCtx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	q := agents.Query{Text: t.req.Query, User: t.user, MessageID: t.messageID, Voice: o.voice()}
	var resp *agents.Response
	if o.voice() {
		var content string
		content, err = t.agent.ProcessVoice(turnCtx, q)
		if err == nil {
			resp = &agents.Response{Content: content, AgentType: t.agent.Type(), ToolsUsed: []string{}}
		}
	} else {
		resp, err = t.agent.ProcessText(turnCtx, q)
	}
	if err != nil {
		errorType, mapped := o.classifyFailure(ctx, turnCtx, err)
		t.log.Error("query failed", "event", "query_error", "error_type", errorType, "error", err)
		observability.Current().ObserveQuery(t.agent.Type(), o.cfg.Mode, errorType, time.Since(started))
		span.SetStatus(codes.Error, errorType)
		return nil, mapped
	}

	o.persist(ctx, t, resp.Content)
	observability.Current().ObserveQuery(t.agent.Type(), o.cfg.Mode, "", time.Since(started))

	md := map[string]any{}
	for k, v := range resp.Metadata {
		md[k] = v
	}
	md["mode"] = o.cfg.Mode
	md["agent_type"] = t.agent.Type()
	md["onboarding_mode"] = t.req.OnboardingMode
	md["user_id"] = t.req.UserID.String()
	md["fitness_level"] = t.user.FitnessLevel()
	md["message_id"] = t.messageID
	md["duration_ms"] = time.Since(started).Milliseconds()

	tools := resp.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	return &AgentResponse{Content: resp.Content, AgentType: t.agent.Type(), ToolsUsed: tools, Metadata: md}, nil
}

// errEmit marks a failure of the caller's emit function.
type errEmit struct{ err error }

func (e errEmit) Error() string { return "emit: " + e.err.Error() }
func (e errEmit) Unwrap() error { return e.err }

// StreamQuery streams the agent's answer through emit: chunk events, then
// exactly one complete or error event. Errors before the first event (access,
// validation, loading) are returned without emitting anything.
func (o *Orchestrator) StreamQuery(ctx context.Context, req QueryRequest, emit func(StreamEvent) error) error {
	t, err := o.prepare(ctx, req)
	if err != nil {
		return err
	}
	session := observability.Current().StartStream(t.agent.Type(), o.cfg.Mode)
	t.log.Info("stream_start", "event", "stream_start", "onboarding_mode", t.req.OnboardingMode)

	turnCtx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	q := agents.Query{Text: t.req.Query, User: t.user, MessageID: t.messageID, Voice: o.voice()}
	resp, err := t.agent.StreamResponse(turnCtx, q, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if turnCtx.Err() != nil {
			return turnCtx.Err()
		}
		if session.Chunk(chunk) {
			t.log.Info("stream_first_token", "event", "stream_first_token", "latency_ms", session.FirstTokenLatency().Milliseconds())
		}
		if err := emit(StreamEvent{Type: EventChunk, Content: chunk, MessageID: t.messageID}); err != nil {
			return errEmit{err}
		}
		return nil
	})

	if err != nil {
		errorType, mapped := o.classifyFailure(ctx, turnCtx, err)
		summary := session.Fail(errorType)
		t.log.Error("stream_error",
			"event", "stream_error",
			"error_type", errorType,
			"error_message", err.Error(),
			"chunks_sent", summary.ChunksSent,
		)
		var ee errEmit
		if !errors.As(err, &ee) {
			_ = emit(StreamEvent{Type: EventError, MessageID: t.messageID, ErrorType: errorType, Error: publicMessage(mapped)})
		}
		t.log.Info("stream_cleanup", "event", "stream_cleanup", "error", true)
		return mapped
	}

	summary := session.Complete()
	tools := resp.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	metrics := &StreamMetrics{
		MessageID:    t.messageID,
		AgentType:    t.agent.Type(),
		ChunksSent:   summary.ChunksSent,
		TotalChars:   summary.TotalChars,
		FirstTokenMS: summary.FirstTokenMS,
		DurationMS:   summary.DurationMS,
		ToolsUsed:    tools,
	}
	emitErr := emit(StreamEvent{Type: EventComplete, MessageID: t.messageID, Metrics: metrics})
	t.log.Info("stream_complete",
		"event", "stream_complete",
		"chunks_sent", summary.ChunksSent,
		"total_chars", summary.TotalChars,
		"first_chunk_ms", summary.FirstTokenMS,
		"duration_ms", summary.DurationMS,
		"tools_used", tools,
	)
	o.persist(ctx, t, resp.Content)
	t.log.Info("stream_cleanup", "event", "stream_cleanup", "error", false)
	if emitErr != nil {
		t.log.Warn("complete event not delivered", "error", emitErr)
	}
	return nil
}

// classifyFailure names why a turn failed and maps the error for callers.
// The turn's own deadline is a timeout; the caller leaving is a cancellation.
func (o *Orchestrator) classifyFailure(parent, turnCtx context.Context, err error) (string, error) {
	var ee errEmit
	switch {
	case errors.As(err, &ee), parent.Err() != nil:
		return ErrorTypeCancelled, context.Canceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(turnCtx.Err(), context.DeadlineExceeded):
		return ErrorTypeTimeout, apierr.Timeout(err)
	}
	if ae, ok := apierr.As(err); ok {
		return ae.Code, ae
	}
	return ErrorTypeAgent, apierr.Unexpected(err)
}

func publicMessage(err error) string {
	if ae, ok := apierr.As(err); ok {
		return ae.Detail()
	}
	return err.Error()
}

// persist stores the exchange. Failures are logged and counted but never
// change what the caller already received.
func (o *Orchestrator) persist(ctx context.Context, t *turn, answer string) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()
	agentType := t.agent.Type()
	var (
		err   error
		label string
	)
	if t.req.OnboardingMode {
		label = "onboarding"
		err = o.deps.Onboarding.AppendConversation(ctx, t.req.UserID,
			types.ConversationEntry{Role: chat.RoleUser, Content: t.req.Query, Timestamp: now},
			types.ConversationEntry{Role: chat.RoleAssistant, Content: answer, AgentType: agentType, Timestamp: now},
		)
	} else {
		label = "chat"
		if o.deps.Conversations == nil {
			return
		}
		mid, _ := uuid.Parse(t.messageID)
		_, err = o.deps.Conversations.Create(dbctx.Context{Ctx: ctx}, []*types.ConversationMessage{
			{UserID: t.req.UserID, MessageID: mid, Role: chat.RoleUser, Content: t.req.Query, AgentType: agentType, CreatedAt: now},
			{UserID: t.req.UserID, MessageID: mid, Role: chat.RoleAssistant, Content: answer, AgentType: agentType, CreatedAt: now.Add(time.Millisecond)},
		})
	}
	if err != nil {
		t.log.Error("database_save_failed", "event", "database_save_failed", "target", label, "error", err)
		observability.Current().IncDatabaseSaveFailed(o.cfg.Mode)
	}
}
