package services

const unlockMessage = "Complete onboarding to unlock your dashboard, workouts, meals and profile."

var lockedUntilOnboarded = []string{"dashboard", "workouts", "meals", "profile"}

// AccessControl is returned on the user-info endpoint so clients can gate
// navigation.
type AccessControl struct {
	CanAccessChat      bool              `json:"can_access_chat"`
	CanAccessDashboard bool              `json:"can_access_dashboard"`
	CanAccessWorkouts  bool              `json:"can_access_workouts"`
	CanAccessMeals     bool              `json:"can_access_meals"`
	CanAccessProfile   bool              `json:"can_access_profile"`
	LockedFeatures     []string          `json:"locked_features"`
	UnlockMessage      *string           `json:"unlock_message"`
	OnboardingProgress *ProgressResponse `json:"onboarding_progress"`
}

func DeriveAccessControl(completed bool, progress *ProgressResponse) AccessControl {
	if completed {
		return AccessControl{
			CanAccessChat:      true,
			CanAccessDashboard: true,
			CanAccessWorkouts:  true,
			CanAccessMeals:     true,
			CanAccessProfile:   true,
			LockedFeatures:     []string{},
		}
	}
	msg := unlockMessage
	if progress == nil {
		progress = &ProgressResponse{TotalStates: 9, CompletedStates: []int{}}
	}
	return AccessControl{
		CanAccessChat:      true,
		LockedFeatures:     append([]string(nil), lockedUntilOnboarded...),
		UnlockMessage:      &msg,
		OnboardingProgress: progress,
	}
}
