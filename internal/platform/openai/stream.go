package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/ctxutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
)

type streamEvent struct {
	Type     string             `json:"type"`
	Delta    string             `json:"delta"`
	Item     *outputItem        `json:"item,omitempty"`
	Response *responsesResponse `json:"response,omitempty"`
	Error    json.RawMessage    `json:"error,omitempty"`
	Refusal  string             `json:"refusal,omitempty"`
}

// Stream runs one Responses API call with stream=true. Text deltas are forwarded as
// they arrive; function calls are collected from output_item.done events.
func (c *client) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) (*llm.Completion, error) {
	ctx = ctxutil.Default(ctx)
	body := buildRequest(c.model, req)
	body.Stream = true
	c.applyTemperature(&body)

	start := time.Now()
	resp, err := c.openStream(ctx, &body)
	if err != nil && body.Temperature != nil && isUnsupportedTemperature(err) {
		c.noteNoTemp(body.Model)
		body.Temperature = nil
		resp, err = c.openStream(ctx, &body)
	}
	if err != nil {
		observability.Current().ObserveLLMRequest(body.Model, responsesPath, statusFromRespErr(nil, err), time.Since(start), 0, 0)
		return nil, err
	}
	defer resp.Body.Close()

	out := &llm.Completion{Model: c.model}
	var text strings.Builder
	err = streamSSE(resp.Body, func(event, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		if ev.Type == "" {
			ev.Type = event
		}
		switch {
		case ev.Refusal != "":
			return fmt.Errorf("model refused: %s", ev.Refusal)
		case ev.Type == "error" || ev.Type == "response.failed" || (len(ev.Error) > 0 && string(ev.Error) != "null"):
			return fmt.Errorf("openai stream error: %s", string(ev.Error))
		case strings.HasSuffix(ev.Type, "output_text.delta"):
			d := strings.TrimRight(ev.Delta, "\u0000")
			if d == "" {
				return nil
			}
			text.WriteString(d)
			if onDelta != nil {
				return onDelta(d)
			}
		case ev.Type == "response.output_item.done" && ev.Item != nil && ev.Item.Type == "function_call":
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: ev.Item.CallID, Name: ev.Item.Name, Arguments: ev.Item.Arguments})
		case ev.Type == "response.completed" && ev.Response != nil:
			if ev.Response.Model != "" {
				out.Model = ev.Response.Model
			}
			out.InputTokens = ev.Response.Usage.InputTokens
			out.OutputTokens = ev.Response.Usage.OutputTokens
			out.FinishReason = ev.Response.Status
		}
		return nil
	})
	out.Content = text.String()
	if out.OutputTokens == 0 {
		out.OutputTokens = estimateTokens(out.Content)
	}
	if err != nil {
		observability.Current().ObserveLLMRequest(body.Model, responsesPath, statusFromRespErr(resp, err), time.Since(start), out.InputTokens, out.OutputTokens)
		return nil, err
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}
	observability.Current().ObserveLLMRequest(body.Model, responsesPath, statusFromResp(resp), time.Since(start), out.InputTokens, out.OutputTokens)
	return out, nil
}

func (c *client) openStream(ctx context.Context, body *responsesRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+responsesPath, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return nil, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
}
