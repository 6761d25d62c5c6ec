package agents

import (
	"context"
	"strings"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// Classification is the outcome of routing a query to a specialist domain.
type Classification struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

type QueryClassifier interface {
	Classify(ctx context.Context, query string) (Classification, error)
}

func (f *Factory) generalTools() []Tool {
	tools := make([]Tool, 0, len(Specialists)+1)
	for _, specialist := range Specialists {
		tools = append(tools, f.askTool(specialist))
	}
	if f.deps.Classifier != nil {
		tools = append(tools, Tool{
			Name:        "classify_query",
			Description: "Decide which specialist (" + strings.Join(Specialists, ", ") + ") fits a question, or general.",
			Params:      []Param{{Name: "query", Type: TypeString, Required: true}},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				c, err := f.deps.Classifier.Classify(ctx, argString(args, "query"))
				if err != nil {
					return Fail(apierr.ClassificationFailed(err))
				}
				return OK(c)
			},
		})
	}
	return tools
}

// askTool delegates a question to one specialist and returns its answer for
// the general agent to relay.
func (f *Factory) askTool(specialist string) Tool {
	return Tool{
		Name:        "ask_" + specialist,
		Description: "Ask the " + specialist + " specialist a question on the user's behalf.",
		Params:      []Param{{Name: "question", Type: TypeString, Required: true}},
		Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
			a, err := f.New(specialist)
			if err != nil {
				return Fail(err)
			}
			resp, err := a.ProcessText(ctx, Query{Text: argString(args, "question"), User: env.User, Voice: env.Voice})
			if err != nil {
				return Fail(err)
			}
			return OK(map[string]any{
				"agent":      specialist,
				"answer":     resp.Content,
				"tools_used": resp.ToolsUsed,
			})
		},
	}
}
