package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
)

var ProfileAggregateContract = Contract{
	Name: "Profile.ProfileAggregate",
	Tables: []string{
		"user_profile", "fitness_goal", "physical_constraint", "dietary_preference", "meal_plan",
		"meal_schedule", "workout_schedule", "hydration_preference", "lifestyle_baseline",
		"supplement_preference",
		"profile_version", "workout_plan",
	},
	Invariants: []string{
		"a locked profile rejects every update",
		"each applied update appends exactly one version holding the post-update snapshot",
		"lock state of the workout plan follows the profile",
	},
}

// ProfileAggregate owns profile lock and versioning invariants.
//
// Domain failures are returned as *apierr.Error (user_not_found, profile_locked,
// validation_error). Storage failures use *aggregates.Error codes.
type ProfileAggregate interface {
	Aggregate

	// Update applies a mutation and records the pre-image as version max+1.
	Update(ctx context.Context, in UpdateProfileInput) (UpdateProfileResult, error)

	// SetLock flips is_locked without recording a version.
	SetLock(ctx context.Context, in SetLockInput) (SetLockResult, error)
}

type UpdateProfileInput struct {
	UserID  uuid.UUID
	Update  profile.ProfileUpdate
	EventAt time.Time
}

type UpdateProfileResult struct {
	ProfileID     uuid.UUID
	VersionNumber int
	Unlocked      bool
}

type SetLockInput struct {
	UserID uuid.UUID
	Locked bool
}

type SetLockResult struct {
	ProfileID uuid.UUID
	IsLocked  bool
	Changed   bool
}
