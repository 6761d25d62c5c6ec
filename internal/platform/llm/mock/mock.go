// Package mock is an in-memory llm.Client. With no script it echoes the last user
// message, which keeps offline runs (LLM_PROVIDER=mock) usable.
package mock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
)

// Step is one scripted reply. Err is returned instead of a completion when set;
// Delay is honoured before replying and aborts on ctx cancellation.
type Step struct {
	Completion llm.Completion
	Err        error
	Delay      time.Duration
}

type Client struct {
	ChunkSize int
	JSON      map[string]any
	JSONErr   error

	mu       sync.Mutex
	script   []Step
	requests []llm.Request
}

func New(steps ...Step) *Client {
	return &Client{ChunkSize: 16, script: steps}
}

// Text is a shorthand step producing plain assistant content.
func Text(content string) Step {
	return Step{Completion: llm.Completion{Content: content, FinishReason: "stop"}}
}

// Call is a shorthand step producing one tool call.
func Call(id, name, args string) Step {
	return Step{Completion: llm.Completion{
		ToolCalls:    []llm.ToolCall{{ID: id, Name: name, Arguments: args}},
		FinishReason: "tool_calls",
	}}
}

func (c *Client) Push(steps ...Step) {
	c.mu.Lock()
	c.script = append(c.script, steps...)
	c.mu.Unlock()
}

// Requests returns a copy of every request seen so far.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}

func (c *Client) Model() string { return "mock" }

func (c *Client) next(req llm.Request) (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.script) == 0 {
		return Step{}, false
	}
	s := c.script[0]
	c.script = c.script[1:]
	return s, true
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	step, ok := c.next(req)
	if !ok {
		step = Text(echo(req))
	}
	if step.Delay > 0 {
		t := time.NewTimer(step.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}
	out := step.Completion
	out.ToolCalls = append([]llm.ToolCall(nil), step.Completion.ToolCalls...)
	if out.Model == "" {
		out.Model = "mock"
	}
	return &out, nil
}

func (c *Client) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) (*llm.Completion, error) {
	out, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	size := c.ChunkSize
	if size <= 0 {
		size = 16
	}
	text := out.Content
	for i := 0; i < len(text); i += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		if onDelta != nil {
			if err := onDelta(text[i:end]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (c *Client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	c.mu.Lock()
	c.requests = append(c.requests, llm.Request{System: system, Messages: []llm.Message{{Role: llm.RoleUser, Content: user}}})
	obj, jsonErr := c.JSON, c.JSONErr
	c.mu.Unlock()
	if jsonErr != nil {
		return nil, jsonErr
	}
	out := map[string]any{}
	for k, v := range obj {
		out[k] = v
	}
	return out, nil
}

func echo(req llm.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		m := req.Messages[i]
		if m.Role == llm.RoleUser && strings.TrimSpace(m.Content) != "" {
			return fmt.Sprintf("mock: %s", m.Content)
		}
	}
	return "mock: ok"
}
