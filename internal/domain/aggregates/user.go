package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var UserAggregateContract = Contract{
	Name: "Users.UserAggregate",
	Tables: []string{
		"user", "onboarding_state", "user_profile", "fitness_goal", "physical_constraint", "dietary_preference", "meal_plan",
		"meal_schedule", "workout_schedule", "hydration_preference", "lifestyle_baseline",
		"supplement_preference",
		"workout_plan", "workout_day", "workout_exercise", "conversation_message",
	},
	Invariants: []string{
		"deleting a user soft-deletes every owned row in one transaction",
		"profile versions survive deletion",
	},
}

// UserAggregate owns user lifecycle invariants.
type UserAggregate interface {
	Aggregate

	// SoftDelete marks the user and every owned row deleted in one transaction.
	// Profile versions are kept.
	SoftDelete(ctx context.Context, in SoftDeleteUserInput) (SoftDeleteUserResult, error)
}

type SoftDeleteUserInput struct {
	UserID  uuid.UUID
	EventAt time.Time
}

type SoftDeleteUserResult struct {
	UserID   uuid.UUID
	Affected map[string]int64
}
