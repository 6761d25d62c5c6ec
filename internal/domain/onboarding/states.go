package onboarding

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	TotalStates = 9

	// MigrationMetadataKey may appear in step_data rows written by an older
	// schema. It is ignored on read and dropped on rewrite.
	MigrationMetadataKey = "_migration_metadata"
)

// State owners.
const (
	AgentWorkout    = "workout"
	AgentDiet       = "diet"
	AgentScheduler  = "scheduler"
	AgentSupplement = "supplement"
)

// Conversational onboarding agents. The names double as agent_context buckets.
const (
	AgentFitnessAssessment = "fitness_assessment"
	AgentGoalSetting       = "goal_setting"
	AgentWorkoutPlanning   = "workout_planning"
	AgentDietPlanning      = "diet_planning"
	AgentScheduling        = "scheduling"
)

type stateInfo struct {
	agent       string
	description string
}

var stateTable = map[int]stateInfo{
	1: {AgentWorkout, "Fitness level assessment"},
	2: {AgentWorkout, "Fitness goals"},
	3: {AgentWorkout, "Equipment, injuries and limitations"},
	4: {AgentDiet, "Dietary preferences"},
	5: {AgentDiet, "Calorie target and macro split"},
	6: {AgentScheduler, "Meal schedule"},
	7: {AgentScheduler, "Workout schedule"},
	8: {AgentScheduler, "Hydration preferences"},
	9: {AgentSupplement, "Supplement preferences"},
}

// AgentForState returns the agent that owns state. State 0 and anything
// outside 1..9 have no owner.
func AgentForState(state int) (string, bool) {
	info, ok := stateTable[state]
	if !ok {
		return "", false
	}
	return info.agent, true
}

func DescribeState(state int) string {
	if state == 0 {
		return "Not started"
	}
	if info, ok := stateTable[state]; ok {
		return info.description
	}
	return ""
}

// ConversationalAgentForStep picks the onboarding agent that collects step.
func ConversationalAgentForStep(step int) string {
	switch {
	case step <= 1:
		return AgentFitnessAssessment
	case step == 2:
		return AgentGoalSetting
	case step == 3:
		return AgentWorkoutPlanning
	case step <= 5:
		return AgentDietPlanning
	default:
		return AgentScheduling
	}
}

func IsConversationalAgent(agentType string) bool {
	switch agentType {
	case AgentFitnessAssessment, AgentGoalSetting, AgentWorkoutPlanning, AgentDietPlanning, AgentScheduling:
		return true
	}
	return false
}

func StepKey(step int) string {
	return fmt.Sprintf("step_%d", step)
}

// ParseStepKey returns the step number for keys step_1..step_9.
func ParseStepKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "step_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > TotalStates {
		return 0, false
	}
	return n, true
}
