package domain

import (
	"github.com/yungbote/fitcoach-backend/internal/domain/chat"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/domain/user"
	"github.com/yungbote/fitcoach-backend/internal/domain/workout"
)

type User = user.User

type OnboardingState = onboarding.OnboardingState
type HistoryEntry = onboarding.HistoryEntry
type ConversationEntry = onboarding.ConversationEntry

type UserProfile = profile.UserProfile
type ProfileVersion = profile.ProfileVersion
type ProfileSnapshot = profile.ProfileSnapshot
type ProfileUpdate = profile.ProfileUpdate
type FitnessGoal = profile.FitnessGoal
type PhysicalConstraint = profile.PhysicalConstraint
type DietaryPreference = profile.DietaryPreference
type MealPlan = profile.MealPlan
type MealSchedule = profile.MealSchedule
type WorkoutSchedule = profile.WorkoutSchedule
type HydrationPreference = profile.HydrationPreference
type LifestyleBaseline = profile.LifestyleBaseline
type SupplementPreference = profile.SupplementPreference

type WorkoutPlan = workout.WorkoutPlan
type WorkoutDay = workout.WorkoutDay
type WorkoutExercise = workout.WorkoutExercise
type ExerciseLibrary = workout.ExerciseLibrary

type ConversationMessage = chat.ConversationMessage

// Models lists every table in migration order: parents before children.
func Models() []any {
	return []any{
		&User{},
		&OnboardingState{},
		&UserProfile{},
		&FitnessGoal{},
		&PhysicalConstraint{},
		&DietaryPreference{},
		&MealPlan{},
		&MealSchedule{},
		&WorkoutSchedule{},
		&HydrationPreference{},
		&LifestyleBaseline{},
		&SupplementPreference{},
		&ProfileVersion{},
		&ExerciseLibrary{},
		&WorkoutPlan{},
		&WorkoutDay{},
		&WorkoutExercise{},
		&ConversationMessage{},
	}
}
