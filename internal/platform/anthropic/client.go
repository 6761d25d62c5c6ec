// Package anthropic adapts langchaingo's Anthropic model to llm.Client.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcanthropic "github.com/tmc/langchaingo/llms/anthropic"

	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/envutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const endpoint = "anthropic/messages"

type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:    envutil.String("ANTHROPIC_API_KEY", ""),
		Model:     envutil.String("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		MaxTokens: envutil.Int("ANTHROPIC_MAX_TOKENS", 1024),
	}
}

type client struct {
	log       *logger.Logger
	model     llms.Model
	modelName string
	maxTokens int
}

func NewClient(log *logger.Logger, cfg Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	m, err := lcanthropic.New(
		lcanthropic.WithToken(cfg.APIKey),
		lcanthropic.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init anthropic: %w", err)
	}
	return newWithModel(log, m, cfg), nil
}

func newWithModel(log *logger.Logger, m llms.Model, cfg Config) *client {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &client{
		log:       log.With("client", "AnthropicClient"),
		model:     m,
		modelName: cfg.Model,
		maxTokens: maxTokens,
	}
}

func (c *client) Model() string { return c.modelName }

func (c *client) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	return c.generate(ctx, req, nil)
}

func (c *client) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) (*llm.Completion, error) {
	stream := func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 || onDelta == nil {
			return nil
		}
		return onDelta(string(chunk))
	}
	return c.generate(ctx, req, stream)
}

func (c *client) generate(ctx context.Context, req llm.Request, stream func(context.Context, []byte) error) (*llm.Completion, error) {
	start := time.Now()
	opts := []llms.CallOption{llms.WithMaxTokens(c.maxTokens)}
	if req.MaxOutputTokens > 0 {
		opts[0] = llms.WithMaxTokens(req.MaxOutputTokens)
	}
	if tools := toTools(req.Tools); len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	if stream != nil {
		opts = append(opts, llms.WithStreamingFunc(stream))
	}

	resp, err := c.model.GenerateContent(ctx, toMessages(req), opts...)
	if err != nil {
		observability.Current().ObserveLLMRequest(c.modelName, endpoint, statusOf(err), time.Since(start), 0, 0)
		return nil, err
	}
	out := fromResponse(resp, c.modelName)
	observability.Current().ObserveLLMRequest(c.modelName, endpoint, "200", time.Since(start), out.InputTokens, out.OutputTokens)
	return out, nil
}

// GenerateJSON asks for a bare JSON object matching schema and parses the reply.
func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	rawSchema, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	sys := strings.TrimSpace(system) + "\n\nRespond with a single JSON object named " + schemaName +
		" that validates against this JSON schema. No prose, no code fences.\n" + string(rawSchema)
	out, err := c.Complete(ctx, llm.Request{
		System:   sys,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
	})
	if err != nil {
		return nil, err
	}
	text := stripFences(out.Content)
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndex(s, "}"); j >= 0 && j < len(s)-1 {
		s = s[:j+1]
	}
	return strings.TrimSpace(s)
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
