package profile

import (
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
)

const DefaultChangeReason = "Profile update"

// ProfileUpdate is a partial mutation. Nil fields are left alone; slice
// fields replace the stored collection. Scalar ranges are validate tags;
// step-shaped fields are checked against the onboarding step rules.
type ProfileUpdate struct {
	FitnessLevel *string `json:"fitness_level,omitempty"`

	Goals       *[]onboarding.GoalInput `json:"goals,omitempty"`
	Equipment   *[]string               `json:"equipment,omitempty"`
	Injuries    *[]string               `json:"injuries,omitempty"`
	Limitations *[]string               `json:"limitations,omitempty"`

	DietType     *string   `json:"diet_type,omitempty"`
	Allergies    *[]string `json:"allergies,omitempty"`
	Intolerances *[]string `json:"intolerances,omitempty"`
	Dislikes     *[]string `json:"dislikes,omitempty"`

	DailyCalorieTarget *int     `json:"daily_calorie_target,omitempty" validate:"omitnil,min=1000,max=5000"`
	ProteinGrams       *float64 `json:"protein_grams,omitempty" validate:"omitnil,min=0,max=1000"`
	CarbsGrams         *float64 `json:"carbs_grams,omitempty" validate:"omitnil,min=0,max=1000"`
	FatsGrams          *float64 `json:"fats_grams,omitempty" validate:"omitnil,min=0,max=1000"`

	MealSchedules    *[]onboarding.MealSlot    `json:"meal_schedules,omitempty"`
	WorkoutSchedules *[]onboarding.WorkoutSlot `json:"workout_schedules,omitempty"`

	DailyWaterTargetML       *int `json:"daily_water_target_ml,omitempty" validate:"omitnil,min=1500,max=5000"`
	ReminderFrequencyMinutes *int `json:"reminder_frequency_minutes,omitempty" validate:"omitnil,min=15,max=240"`

	EnergyLevel  *int `json:"energy_level,omitempty" validate:"omitnil,min=1,max=10"`
	StressLevel  *int `json:"stress_level,omitempty" validate:"omitnil,min=1,max=10"`
	SleepQuality *int `json:"sleep_quality,omitempty" validate:"omitnil,min=1,max=10"`

	InterestedInSupplements *bool     `json:"interested_in_supplements,omitempty"`
	CurrentSupplements      *[]string `json:"current_supplements,omitempty"`

	ChangeReason string `json:"change_reason,omitempty"`
	Unlock       bool   `json:"unlock,omitempty"`
}

// HasChanges reports whether any field besides ChangeReason and Unlock is set.
func (u ProfileUpdate) HasChanges() bool {
	return u.FitnessLevel != nil ||
		u.Goals != nil || u.Equipment != nil || u.Injuries != nil || u.Limitations != nil ||
		u.DietType != nil || u.Allergies != nil || u.Intolerances != nil || u.Dislikes != nil ||
		u.DailyCalorieTarget != nil || u.ProteinGrams != nil || u.CarbsGrams != nil || u.FatsGrams != nil ||
		u.MealSchedules != nil || u.WorkoutSchedules != nil ||
		u.DailyWaterTargetML != nil || u.ReminderFrequencyMinutes != nil ||
		u.EnergyLevel != nil || u.StressLevel != nil || u.SleepQuality != nil ||
		u.InterestedInSupplements != nil || u.CurrentSupplements != nil
}

func (u ProfileUpdate) Reason() string {
	if u.ChangeReason == "" {
		return DefaultChangeReason
	}
	return u.ChangeReason
}
