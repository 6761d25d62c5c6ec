// Package agents implements the coaching agents: a shared LLM tool loop, the
// onboarding agents that fill the onboarding state, and the post-onboarding
// specialists that read and change the profile.
package agents

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// Onboarding agent types share their names with the agent_context buckets.
const (
	AgentFitnessAssessment = onboarding.AgentFitnessAssessment
	AgentGoalSetting       = onboarding.AgentGoalSetting
	AgentWorkoutPlanning   = onboarding.AgentWorkoutPlanning
	AgentDietPlanning      = onboarding.AgentDietPlanning
	AgentScheduling        = onboarding.AgentScheduling
)

// Post-onboarding agent types.
const (
	AgentWorkout    = "workout"
	AgentDiet       = "diet"
	AgentSupplement = "supplement"
	AgentTracker    = "tracker"
	AgentScheduler  = "scheduler"
	AgentGeneral    = "general"
)

// Specialists are the agents general can delegate to, in classifier order.
var Specialists = []string{AgentWorkout, AgentDiet, AgentSupplement, AgentTracker, AgentScheduler}

// MaxToolRounds bounds how many tool rounds one turn may take. The call after
// the last round is made without tools so the model has to answer.
const MaxToolRounds = 4

const defaultMaxOutputTokens = 1024

type Query struct {
	Text      string
	User      UserContext
	MessageID string
	Voice     bool
}

type Response struct {
	Content   string         `json:"content"`
	AgentType string         `json:"agent_type"`
	ToolsUsed []string       `json:"tools_used"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Agent interface {
	Type() string
	ProcessText(ctx context.Context, q Query) (*Response, error)
	ProcessVoice(ctx context.Context, q Query) (string, error)
	// StreamResponse delivers content deltas through onChunk as they arrive.
	// An error from onChunk stops the turn before the next chunk or round.
	StreamResponse(ctx context.Context, q Query, onChunk func(string) error) (*Response, error)
	Tools() []Tool
	SystemPrompt(uc UserContext, voice bool) string
}

// coach is the single Agent implementation; agent types differ only in their
// prompt and tool set.
type coach struct {
	agentType string
	llm       llm.Client
	log       *logger.Logger
	prompts   *PromptCatalog
	tools     []Tool
	byName    map[string]Tool
	maxTokens int
}

func newCoach(agentType string, client llm.Client, log *logger.Logger, prompts *PromptCatalog, tools []Tool) *coach {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	return &coach{
		agentType: agentType,
		llm:       client,
		log:       log.With("agent_type", agentType),
		prompts:   prompts,
		tools:     tools,
		byName:    byName,
		maxTokens: defaultMaxOutputTokens,
	}
}

func (a *coach) Type() string { return a.agentType }

func (a *coach) Tools() []Tool { return append([]Tool(nil), a.tools...) }

func (a *coach) SystemPrompt(uc UserContext, voice bool) string {
	return a.prompts.Build(a.agentType, uc, voice)
}

func (a *coach) ProcessText(ctx context.Context, q Query) (*Response, error) {
	return a.run(ctx, q, q.Voice, nil)
}

func (a *coach) ProcessVoice(ctx context.Context, q Query) (string, error) {
	resp, err := a.run(ctx, q, true, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (a *coach) StreamResponse(ctx context.Context, q Query, onChunk func(string) error) (*Response, error) {
	if onChunk == nil {
		onChunk = func(string) error { return nil }
	}
	return a.run(ctx, q, q.Voice, onChunk)
}

func (a *coach) run(ctx context.Context, q Query, voice bool, onChunk func(string) error) (*Response, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, apierr.Validation("query", "query is required")
	}
	msgs := q.User.History()
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: q.Text})

	defs := make([]llm.ToolDef, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, t.Def())
	}
	req := llm.Request{
		System:          a.SystemPrompt(q.User, voice),
		Messages:        msgs,
		Tools:           defs,
		MaxOutputTokens: a.maxTokens,
	}
	if len(defs) == 0 {
		req.Tools = nil
	}

	env := ToolEnv{User: q.User, Query: q.Text, Voice: voice}
	used := []string{}
	var content strings.Builder
	model := a.llm.Model()
	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rounds >= MaxToolRounds {
			req.Tools = nil
		}
		comp, err := a.complete(ctx, req, onChunk)
		if err != nil {
			return nil, err
		}
		if comp.Model != "" {
			model = comp.Model
		}
		content.WriteString(comp.Content)
		if len(comp.ToolCalls) == 0 || req.Tools == nil {
			break
		}
		rounds++
		req.Messages = append(req.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   comp.Content,
			ToolCalls: comp.ToolCalls,
		})
		for _, call := range comp.ToolCalls {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res := a.invoke(ctx, env, call)
			used = append(used, call.Name)
			req.Messages = append(req.Messages, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    res.JSON(),
			})
		}
	}

	return &Response{
		Content:   strings.TrimSpace(content.String()),
		AgentType: a.agentType,
		ToolsUsed: used,
		Metadata:  map[string]any{"tool_rounds": rounds, "model": model},
	}, nil
}

func (a *coach) complete(ctx context.Context, req llm.Request, onChunk func(string) error) (*llm.Completion, error) {
	if onChunk == nil {
		return a.llm.Complete(ctx, req)
	}
	return a.llm.Stream(ctx, req, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return onChunk(delta)
	})
}

func (a *coach) invoke(ctx context.Context, env ToolEnv, call llm.ToolCall) ToolResult {
	ctx, span := observability.StartSpan(ctx, "agent.tool",
		attribute.String("agent_type", a.agentType),
		attribute.String("tool", call.Name),
	)
	defer span.End()

	res := a.execute(ctx, env, call)
	status := "ok"
	if !res.Success {
		status = "error"
		span.SetStatus(codes.Error, res.Error)
		a.log.Warn("tool call failed", "tool", call.Name, "error_code", res.ErrorCode, "error", res.Error)
	} else {
		a.log.Debug("tool call", "tool", call.Name)
	}
	observability.Current().IncToolCall(a.agentType, call.Name, status)
	return res
}

func (a *coach) execute(ctx context.Context, env ToolEnv, call llm.ToolCall) ToolResult {
	tool, ok := a.byName[call.Name]
	if !ok {
		return Fail(apierr.Validation("tool", "unknown tool %q", call.Name))
	}
	raw, err := call.DecodeArguments()
	if err != nil {
		return Fail(apierr.Validation("arguments", "tool arguments are not valid JSON"))
	}
	args, err := ValidateArgs(tool.Params, raw)
	if err != nil {
		return Fail(err)
	}
	return tool.Run(ctx, env, args)
}

// IsCancellation reports whether err means the caller went away rather than
// something failing.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
