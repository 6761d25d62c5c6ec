package orchestrator

import (
	"testing"

	"github.com/yungbote/fitcoach-backend/internal/agents"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

func TestCheckAccess(t *testing.T) {
	cases := []struct {
		name       string
		onboarding bool
		completed  bool
		agentType  string
		denied     bool
	}{
		{"onboarding in progress", true, false, "", false},
		{"onboarding with agent", true, false, agents.AgentGoalSetting, false},
		{"onboarding after completion", true, true, "", true},
		{"chat before completion", false, false, "", true},
		{"chat general", false, true, agents.AgentGeneral, false},
		{"chat default agent", false, true, "", false},
		{"chat specialist", false, true, agents.AgentDiet, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAccess(tc.onboarding, tc.completed, tc.agentType)
			if !tc.denied {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if apierr.CodeOf(err) != apierr.CodeAccessDenied {
				t.Fatalf("expected access_denied, got %v", err)
			}
		})
	}
}

func TestCheckAccessMessages(t *testing.T) {
	err := CheckAccess(false, true, agents.AgentWorkout)
	ae, ok := apierr.As(err)
	if !ok || ae.Detail() != "only general agent available post-onboarding" {
		t.Fatalf("unexpected error: %v", err)
	}
	err = CheckAccess(false, false, "")
	if ae, _ := apierr.As(err); ae == nil || ae.Detail() != "complete onboarding first" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSelectAgent(t *testing.T) {
	cases := []struct {
		onboarding bool
		requested  string
		state      int
		want       string
	}{
		{false, "", 9, agents.AgentGeneral},
		{false, agents.AgentGeneral, 9, agents.AgentGeneral},
		{true, "", 0, agents.AgentFitnessAssessment},
		{true, "", 1, agents.AgentGoalSetting},
		{true, "", 2, agents.AgentWorkoutPlanning},
		{true, "", 3, agents.AgentDietPlanning},
		{true, "", 4, agents.AgentDietPlanning},
		{true, "", 5, agents.AgentScheduling},
		{true, "", 9, agents.AgentScheduling},
		{true, agents.AgentDietPlanning, 0, agents.AgentDietPlanning},
		{true, agents.AgentWorkout, 0, agents.AgentFitnessAssessment},
	}
	for _, tc := range cases {
		if got := SelectAgent(tc.onboarding, tc.requested, tc.state); got != tc.want {
			t.Fatalf("SelectAgent(%v, %q, %d) = %q, want %q", tc.onboarding, tc.requested, tc.state, got, tc.want)
		}
	}
}
