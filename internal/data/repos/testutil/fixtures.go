package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "pw",
		FirstName:    "A",
		LastName:     "B",
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// StepPayloads are valid payloads for every onboarding step, keyed step_1..step_9.
func StepPayloads() map[int]json.RawMessage {
	return map[int]json.RawMessage{
		1: json.RawMessage(`{"fitness_level":"intermediate"}`),
		2: json.RawMessage(`{"goals":[{"goal_type":"muscle_gain","priority":1},{"goal_type":"strength","priority":2,"target_weight_kg":82.5}]}`),
		3: json.RawMessage(`{"equipment":["dumbbells","pull-up bar"],"injuries":["left knee"],"limitations":[]}`),
		4: json.RawMessage(`{"diet_type":"omnivore","allergies":["peanuts"],"intolerances":[],"dislikes":["olives"]}`),
		5: json.RawMessage(`{"daily_calorie_target":2500,"protein_percentage":30,"carbs_percentage":45,"fats_percentage":25}`),
		6: json.RawMessage(`{"meals":[{"meal_name":"Breakfast","scheduled_time":"07:30","enable_notifications":true},{"meal_name":"Dinner","scheduled_time":"19:00","enable_notifications":false}]}`),
		7: json.RawMessage(`{"workouts":[{"day_of_week":0,"scheduled_time":"18:00","enable_notifications":true},{"day_of_week":3,"scheduled_time":"18:00","enable_notifications":true}]}`),
		8: json.RawMessage(`{"daily_water_target_ml":2500,"reminder_frequency_minutes":60}`),
		9: json.RawMessage(`{"interested_in_supplements":true,"current_supplements":["creatine"]}`),
	}
}

// SeedOnboarding writes a state row holding steps 1..upTo with current_state=upTo.
func SeedOnboarding(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, upTo int) *types.OnboardingState {
	tb.Helper()
	steps := map[string]json.RawMessage{}
	payloads := StepPayloads()
	for n := 1; n <= upTo; n++ {
		steps[onboarding.StepKey(n)] = payloads[n]
	}
	b, err := json.Marshal(steps)
	if err != nil {
		tb.Fatalf("marshal steps: %v", err)
	}
	st := &types.OnboardingState{
		UserID:       userID,
		CurrentState: upTo,
		StepData:     datatypes.JSON(b),
	}
	if err := tx.WithContext(ctx).Create(st).Error; err != nil {
		tb.Fatalf("seed onboarding: %v", err)
	}
	return st
}

// SeedProfile writes a locked profile with a meal plan, one goal and one meal slot.
func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.UserProfile {
	tb.Helper()
	p := &types.UserProfile{
		UserID:       userID,
		IsLocked:     true,
		FitnessLevel: "intermediate",
		Goals: []profile.FitnessGoal{
			{GoalType: "muscle_gain", Priority: 1},
		},
		MealPlan: &profile.MealPlan{
			DailyCalorieTarget: 2500,
			ProteinGrams:       187.5,
			CarbsGrams:         281.25,
			FatsGrams:          69.44,
		},
		MealSchedules: []profile.MealSchedule{
			{MealName: "Breakfast", ScheduledTime: "07:30:00", EnableNotifications: true},
		},
		LifestyleBaseline: &profile.LifestyleBaseline{EnergyLevel: 8, StressLevel: 4, SleepQuality: 7},
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}
