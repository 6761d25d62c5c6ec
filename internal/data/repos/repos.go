package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/repos/chat"
	"github.com/yungbote/fitcoach-backend/internal/data/repos/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/data/repos/profile"
	"github.com/yungbote/fitcoach-backend/internal/data/repos/user"
	"github.com/yungbote/fitcoach-backend/internal/data/repos/workout"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type OnboardingStateRepo = onboarding.OnboardingStateRepo

type UserProfileRepo = profile.UserProfileRepo
type ProfileVersionRepo = profile.ProfileVersionRepo

type WorkoutPlanRepo = workout.WorkoutPlanRepo
type ExerciseLibraryRepo = workout.ExerciseLibraryRepo
type ExerciseFilter = workout.ExerciseFilter

type ConversationMessageRepo = chat.ConversationMessageRepo

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return user.NewUserRepo(db, log)
}

func NewOnboardingStateRepo(db *gorm.DB, log *logger.Logger) OnboardingStateRepo {
	return onboarding.NewOnboardingStateRepo(db, log)
}

func NewUserProfileRepo(db *gorm.DB, log *logger.Logger) UserProfileRepo {
	return profile.NewUserProfileRepo(db, log)
}

func NewProfileVersionRepo(db *gorm.DB, log *logger.Logger) ProfileVersionRepo {
	return profile.NewProfileVersionRepo(db, log)
}

func NewWorkoutPlanRepo(db *gorm.DB, log *logger.Logger) WorkoutPlanRepo {
	return workout.NewWorkoutPlanRepo(db, log)
}

func NewExerciseLibraryRepo(db *gorm.DB, log *logger.Logger) ExerciseLibraryRepo {
	return workout.NewExerciseLibraryRepo(db, log)
}

func NewConversationMessageRepo(db *gorm.DB, log *logger.Logger) ConversationMessageRepo {
	return chat.NewConversationMessageRepo(db, log)
}

// Set bundles every repo for wiring.
type Set struct {
	Users         UserRepo
	Onboarding    OnboardingStateRepo
	Profiles      UserProfileRepo
	Versions      ProfileVersionRepo
	WorkoutPlans  WorkoutPlanRepo
	Exercises     ExerciseLibraryRepo
	Conversations ConversationMessageRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:         NewUserRepo(db, log),
		Onboarding:    NewOnboardingStateRepo(db, log),
		Profiles:      NewUserProfileRepo(db, log),
		Versions:      NewProfileVersionRepo(db, log),
		WorkoutPlans:  NewWorkoutPlanRepo(db, log),
		Exercises:     NewExerciseLibraryRepo(db, log),
		Conversations: NewConversationMessageRepo(db, log),
	}
}
