package agents

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embeddedPrompts []byte

type AgentPrompt struct {
	Role         string `yaml:"role"`
	Instructions string `yaml:"instructions"`
}

// PromptCatalog holds the prompt fragments every agent builds its system
// prompt from.
type PromptCatalog struct {
	Preamble      string                 `yaml:"preamble"`
	VoiceClause   string                 `yaml:"voice_clause"`
	LockedProfile string                 `yaml:"locked_profile"`
	Agents        map[string]AgentPrompt `yaml:"agents"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *PromptCatalog
	defaultErr     error
)

// DefaultPrompts parses the embedded catalogue once.
func DefaultPrompts() (*PromptCatalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParsePrompts(embeddedPrompts)
	})
	return defaultCatalog, defaultErr
}

func ParsePrompts(raw []byte) (*PromptCatalog, error) {
	var c PromptCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(c.Preamble) == "" {
		return nil, fmt.Errorf("parse prompts: preamble missing")
	}
	if len(c.Agents) == 0 {
		return nil, fmt.Errorf("parse prompts: no agents")
	}
	return &c, nil
}

// Build renders the system prompt for agentType from the user's context.
func (c *PromptCatalog) Build(agentType string, uc UserContext, voice bool) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Preamble))
	if p, ok := c.Agents[agentType]; ok {
		b.WriteString("\n\nROLE: ")
		b.WriteString(strings.TrimSpace(p.Role))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Instructions))
	}

	b.WriteString("\n\nUSER:\n")
	if uc.FirstName() != "" {
		fmt.Fprintf(&b, "- name: %s\n", uc.FirstName())
	}
	fmt.Fprintf(&b, "- fitness level: %s\n", orNone(uc.FitnessLevel()))
	fmt.Fprintf(&b, "- goals: %s\n", orNone(strings.Join(uc.Goals(), ", ")))
	fmt.Fprintf(&b, "- limitations: %s\n", orNone(strings.Join(uc.Limitations(), ", ")))
	fmt.Fprintf(&b, "- energy: %s\n", uc.EnergyLevel())
	if uc.OnboardingMode() {
		fmt.Fprintf(&b, "- onboarding: %d of 9 steps saved\n", uc.OnboardingState())
		if bucket := uc.AgentContext(agentType); len(bucket) > 0 {
			fmt.Fprintf(&b, "- gathered so far: %s\n", compactJSON(bucket))
		}
	} else {
		if plan := uc.WorkoutPlan(); len(plan) > 0 && wantsWorkoutPlan(agentType) {
			fmt.Fprintf(&b, "- workout plan: %s\n", compactJSON(plan))
		}
		if plan := uc.MealPlan(); len(plan) > 0 && wantsMealPlan(agentType) {
			fmt.Fprintf(&b, "- meal plan: %s\n", compactJSON(plan))
		}
		if c.LockedProfile != "" {
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(c.LockedProfile))
		}
	}

	if voice && c.VoiceClause != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(c.VoiceClause))
	}
	return b.String()
}

func wantsWorkoutPlan(agentType string) bool {
	return agentType == AgentWorkout || agentType == AgentTracker || agentType == AgentGeneral
}

func wantsMealPlan(agentType string) bool {
	return agentType == AgentDiet || agentType == AgentTracker || agentType == AgentGeneral
}

const maxPromptJSON = 2000

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "(unavailable)"
	}
	if len(b) > maxPromptJSON {
		return string(b[:maxPromptJSON]) + "..."
	}
	return string(b)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown)"
	}
	return s
}
