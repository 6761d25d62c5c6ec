package agents

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
)

func TestEnergyBucket(t *testing.T) {
	cases := map[int]string{0: EnergyMedium, 1: EnergyLow, 3: EnergyLow, 4: EnergyMedium, 7: EnergyMedium, 8: EnergyHigh, 10: EnergyHigh}
	for in, want := range cases {
		if got := EnergyBucket(in); got != want {
			t.Fatalf("EnergyBucket(%d)=%s want %s", in, got, want)
		}
	}
}

func TestUserContextIsImmutable(t *testing.T) {
	plan := map[string]any{"split": "full_body", "days": []any{map[string]any{"focus": "legs"}}}
	goals := []string{"strength"}
	history := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	uc := NewUserContext(UserContextData{
		UserID:         uuid.New(),
		PrimaryGoal:    "fat_loss",
		SecondaryGoals: goals,
		WorkoutPlan:    plan,
		History:        history,
		AgentContext:   map[string]map[string]any{"goal_setting": {"primary_goal": "fat_loss"}},
	})

	plan["split"] = "changed"
	goals[0] = "changed"
	history[0].Content = "changed"

	got := uc.WorkoutPlan()
	if got["split"] != "full_body" {
		t.Fatalf("plan leaked caller mutation: %v", got["split"])
	}
	got["split"] = "again"
	got["days"].([]any)[0].(map[string]any)["focus"] = "arms"
	again := uc.WorkoutPlan()
	if again["split"] != "full_body" || again["days"].([]any)[0].(map[string]any)["focus"] != "legs" {
		t.Fatalf("accessor returned shared state: %v", again)
	}
	if uc.SecondaryGoals()[0] != "strength" || uc.History()[0].Content != "hi" {
		t.Fatalf("slices leaked caller mutation")
	}
	bucket := uc.AgentContext("goal_setting")
	bucket["primary_goal"] = "x"
	if uc.AgentContext("goal_setting")["primary_goal"] != "fat_loss" {
		t.Fatalf("agent context leaked")
	}
	if uc.EnergyLevel() != EnergyMedium {
		t.Fatalf("default energy=%s", uc.EnergyLevel())
	}
	if strings.Join(uc.Goals(), ",") != "fat_loss,strength" {
		t.Fatalf("goals=%v", uc.Goals())
	}
}
