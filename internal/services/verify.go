package services

import (
	"strings"

	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
)

// VerifyResult reports whether agent_context carries everything the
// onboarding agents must have gathered. Missing holds dotted paths.
type VerifyResult struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// VerifyAgentContext checks the four agent buckets. It never reads the
// database; callers pass the decoded agent_context.
func VerifyAgentContext(ctxs map[string]map[string]any) VerifyResult {
	var missing []string
	need := func(bucket string, paths ...string) {
		b := ctxs[bucket]
		for _, p := range paths {
			if !hasPath(b, p) {
				missing = append(missing, bucket+"."+p)
			}
		}
	}

	need(onboarding.AgentFitnessAssessment, "fitness_level", "experience_details")
	for _, bucket := range []string{onboarding.AgentWorkoutPlanning, onboarding.AgentDietPlanning} {
		b := ctxs[bucket]
		if approved, _ := b["user_approved"].(bool); !approved {
			missing = append(missing, bucket+".user_approved")
		}
		plan := planOf(b)
		if plan == nil {
			missing = append(missing, bucket+".plan")
		}
		if !hasPath(b, "schedule") && !hasPath(plan, "schedule") {
			missing = append(missing, bucket+".schedule")
		}
	}
	need(onboarding.AgentScheduling,
		"hydration_preferences.target_ml",
		"hydration_preferences.frequency_hours",
		"supplement_preferences",
	)

	if len(missing) == 0 {
		return VerifyResult{OK: true}
	}
	return VerifyResult{Missing: missing}
}

// planOf returns the bucket's plan under either key, "plan" first.
func planOf(bucket map[string]any) map[string]any {
	for _, k := range []string{"plan", "proposed_plan"} {
		if p, ok := bucket[k].(map[string]any); ok {
			return p
		}
	}
	return nil
}

func hasPath(m map[string]any, path string) bool {
	cur := m
	for {
		if cur == nil {
			return false
		}
		head, rest, nested := strings.Cut(path, ".")
		v, ok := cur[head]
		if !ok || v == nil {
			return false
		}
		if !nested {
			return true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return false
		}
		cur, path = next, rest
	}
}
