package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
)

var OnboardingAggregateContract = Contract{
	Name: "Onboarding.StateAggregate",
	Tables: []string{
		"onboarding_state", "user_profile", "fitness_goal", "physical_constraint", "dietary_preference", "meal_plan",
		"meal_schedule", "workout_schedule", "hydration_preference", "lifestyle_baseline",
		"supplement_preference",
		"profile_version", "workout_plan", "workout_day", "workout_exercise", "exercise_library",
	},
	Invariants: []string{
		"saving a step never moves current_state backwards",
		"regress clears every step after the target state",
		"completion validates all steps before writing the locked profile and version 1",
	},
}

// OnboardingAggregate owns onboarding state machine invariants.
//
// Domain failures are returned as *apierr.Error (validation_error, state_not_found,
// already_completed, onboarding_incomplete, materialization_conflict). Storage failures
// are returned as *aggregates.Error with CodeConflict, CodeRetryable or CodeInternal.
type OnboardingAggregate interface {
	Aggregate

	// Start creates the state row at 0 when missing. Repeated calls return the existing row.
	Start(ctx context.Context, in StartOnboardingInput) (StartOnboardingResult, error)

	// SaveStep merges a validated payload into step_data and advances current_state when step is ahead.
	SaveStep(ctx context.Context, in SaveStepInput) (SaveStepResult, error)

	// Regress moves current_state back within the same agent's range and clears later steps.
	Regress(ctx context.Context, in RegressInput) (RegressResult, error)

	// MergeAgentContext shallow-merges data into agent_context[bucket].
	MergeAgentContext(ctx context.Context, in MergeAgentContextInput) (MergeAgentContextResult, error)

	// AppendConversation appends entries to conversation_history.
	AppendConversation(ctx context.Context, in AppendConversationInput) error

	// Complete validates all steps and materializes the profile in one transaction.
	Complete(ctx context.Context, in CompleteOnboardingInput) (CompleteOnboardingResult, error)
}

type StartOnboardingInput struct {
	UserID    uuid.UUID
	AgentType string
	EventAt   time.Time
}

type StartOnboardingResult struct {
	State   *onboarding.OnboardingState
	Created bool
}

type SaveStepInput struct {
	UserID    uuid.UUID
	Step      int
	Payload   json.RawMessage
	AgentType string
	EventAt   time.Time
}

type SaveStepResult struct {
	CurrentState int
	NextState    *int
	Advanced     bool
	Version      int
}

type RegressInput struct {
	UserID  uuid.UUID
	ToState int
}

type RegressResult struct {
	FromState    int
	CurrentState int
	ClearedSteps []string
}

type MergeAgentContextInput struct {
	UserID uuid.UUID
	Bucket string
	Data   map[string]any
}

type MergeAgentContextResult struct {
	Bucket map[string]any
}

type AppendConversationInput struct {
	UserID  uuid.UUID
	Entries []onboarding.ConversationEntry
}

type CompleteOnboardingInput struct {
	UserID  uuid.UUID
	EventAt time.Time
}

type CompleteOnboardingResult struct {
	Profile       *profile.UserProfile
	VersionNumber int
}
