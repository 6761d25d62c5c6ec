// Package llm defines the provider-neutral chat completion contract used by agents.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn. Assistant turns may carry ToolCalls; tool turns
// answer a single call by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArguments parses the raw JSON arguments; empty input yields an empty map.
func (tc ToolCall) DecodeArguments() (map[string]any, error) {
	raw := strings.TrimSpace(tc.Arguments)
	if raw == "" {
		return map[string]any{}, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToolDef advertises a callable tool. Parameters is a JSON schema object.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Request struct {
	System          string
	Messages        []Message
	Tools           []ToolDef
	MaxOutputTokens int
}

type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	Model        string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// Client is implemented by every provider. Stream delivers text deltas through
// onDelta and returns the assembled completion, tool calls included; returning an
// error from onDelta aborts the stream.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Stream(ctx context.Context, req Request, onDelta func(delta string) error) (*Completion, error)
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
	Model() string
}
