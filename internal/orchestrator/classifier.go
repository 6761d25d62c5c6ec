package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yungbote/fitcoach-backend/internal/agents"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const classifySchemaName = "query_domain_v1"

var classifyDomains = append(append([]string(nil), agents.Specialists...), agents.AgentGeneral)

// keywords feeds the fallback used when the model answers outside the enum.
var keywords = map[string][]string{
	agents.AgentWorkout:    {"workout", "exercise", "training", "squat", "bench", "deadlift", "reps", "sets", "gym", "cardio", "run", "lift"},
	agents.AgentDiet:       {"diet", "meal", "food", "eat", "calorie", "protein", "carb", "fat", "macro", "recipe", "nutrition"},
	agents.AgentSupplement: {"supplement", "creatine", "vitamin", "whey", "omega", "caffeine", "pre-workout"},
	agents.AgentTracker:    {"progress", "weight", "track", "energy", "sleep", "stress", "mood", "log"},
	agents.AgentScheduler:  {"schedule", "remind", "reminder", "time", "calendar", "water", "hydration", "when"},
}

// Classifier routes a query to a specialist domain with a JSON-schema call.
type Classifier struct {
	llm llm.Client
	log *logger.Logger
}

func NewClassifier(client llm.Client, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{llm: client, log: log.With("component", "Classifier")}
}

type classifyOutput struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the best domain for query. A model failure is reported
// as classification_failed; callers fall back to the general agent.
func (c *Classifier) Classify(ctx context.Context, query string) (agents.Classification, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return agents.Classification{Domain: agents.AgentGeneral, Source: "empty"}, nil
	}

	system := strings.Join([]string{
		"You route questions for a fitness coaching app to one specialist.",
		"- workout: training, exercises, workout plans",
		"- diet: food, calories, macros, meal plans",
		"- supplement: supplements and their use",
		"- tracker: progress, body weight, energy, sleep, stress",
		"- scheduler: meal times, workout times, reminders, hydration",
		"- general: greetings, app questions, anything else",
		"Return ONLY JSON matching the schema.",
	}, "\n")
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"domain":     map[string]any{"type": "string", "enum": classifyDomains},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required": []any{"domain", "confidence"},
	}

	obj, err := c.llm.GenerateJSON(ctx, system, "QUESTION:\n"+query, classifySchemaName, schema)
	if err != nil {
		c.log.Warn("classification_failed", "error", err)
		observability.Current().IncClassification(agents.AgentGeneral, "error")
		return agents.Classification{Domain: agents.AgentGeneral, Source: "error"}, apierr.ClassificationFailed(err)
	}
	var out classifyOutput
	b, _ := json.Marshal(obj)
	_ = json.Unmarshal(b, &out)
	domain := strings.ToLower(strings.TrimSpace(out.Domain))
	if !isDomain(domain) {
		kw := KeywordClassify(query)
		observability.Current().IncClassification(kw.Domain, kw.Source)
		return kw, nil
	}
	observability.Current().IncClassification(domain, "llm")
	return agents.Classification{Domain: domain, Confidence: out.Confidence, Source: "llm"}, nil
}

// KeywordClassify scores each domain by keyword hits. Ties go to the domain
// listed first; no hits means general.
func KeywordClassify(query string) agents.Classification {
	q := strings.ToLower(query)
	best, bestHits := agents.AgentGeneral, 0
	for _, domain := range agents.Specialists {
		hits := 0
		for _, kw := range keywords[domain] {
			if strings.Contains(q, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = domain, hits
		}
	}
	conf := 0.0
	if bestHits > 0 {
		conf = 0.5
	}
	return agents.Classification{Domain: best, Confidence: conf, Source: "keyword"}
}

func isDomain(d string) bool {
	for _, v := range classifyDomains {
		if v == d {
			return true
		}
	}
	return false
}
