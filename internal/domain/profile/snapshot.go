package profile

import (
	"encoding/json"
	"sort"
	"time"
)

// ProfileSnapshot is the serialized form stored in ProfileVersion.Snapshot.
// Field names are part of the stored format; add fields, never rename.
type ProfileSnapshot struct {
	ProfileID            string                `json:"profile_id"`
	UserID               string                `json:"user_id"`
	IsLocked             bool                  `json:"is_locked"`
	FitnessLevel         string                `json:"fitness_level"`
	Goals                []GoalSnapshot        `json:"goals"`
	Constraints          []ConstraintSnapshot  `json:"constraints"`
	DietaryPreference    *DietSnapshot         `json:"dietary_preference"`
	MealPlan             *MealPlanSnapshot     `json:"meal_plan"`
	MealSchedules        []MealTimeSnapshot    `json:"meal_schedules"`
	WorkoutSchedules     []WorkoutTimeSnapshot `json:"workout_schedules"`
	HydrationPreference  *HydrationSnapshot    `json:"hydration_preference"`
	LifestyleBaseline    *LifestyleSnapshot    `json:"lifestyle_baseline"`
	SupplementPreference *SupplementSnapshot   `json:"supplement_preference"`
	CapturedAt           string                `json:"captured_at"`
}

type GoalSnapshot struct {
	GoalType                string   `json:"goal_type"`
	Priority                int      `json:"priority"`
	TargetWeightKg          *float64 `json:"target_weight_kg"`
	TargetBodyFatPercentage *float64 `json:"target_body_fat_percentage"`
}

type ConstraintSnapshot struct {
	ConstraintType string `json:"constraint_type"`
	Description    string `json:"description"`
}

type DietSnapshot struct {
	DietType     string   `json:"diet_type"`
	Allergies    []string `json:"allergies"`
	Intolerances []string `json:"intolerances"`
	Dislikes     []string `json:"dislikes"`
}

type MealPlanSnapshot struct {
	DailyCalorieTarget int             `json:"daily_calorie_target"`
	ProteinGrams       string          `json:"protein_grams"`
	CarbsGrams         string          `json:"carbs_grams"`
	FatsGrams          string          `json:"fats_grams"`
	PlanData           json.RawMessage `json:"plan_data,omitempty"`
}

type MealTimeSnapshot struct {
	MealName            string `json:"meal_name"`
	ScheduledTime       string `json:"scheduled_time"`
	EnableNotifications bool   `json:"enable_notifications"`
}

type WorkoutTimeSnapshot struct {
	DayOfWeek           int    `json:"day_of_week"`
	ScheduledTime       string `json:"scheduled_time"`
	EnableNotifications bool   `json:"enable_notifications"`
}

type HydrationSnapshot struct {
	DailyWaterTargetML       int `json:"daily_water_target_ml"`
	ReminderFrequencyMinutes int `json:"reminder_frequency_minutes"`
}

type LifestyleSnapshot struct {
	EnergyLevel  int `json:"energy_level"`
	StressLevel  int `json:"stress_level"`
	SleepQuality int `json:"sleep_quality"`
}

type SupplementSnapshot struct {
	InterestedInSupplements bool     `json:"interested_in_supplements"`
	CurrentSupplements      []string `json:"current_supplements"`
}

// NewSnapshot captures p and its loaded children. Collections are ordered so
// equal profiles serialize identically.
func NewSnapshot(p *UserProfile, at time.Time) ProfileSnapshot {
	s := ProfileSnapshot{
		ProfileID:        p.ID.String(),
		UserID:           p.UserID.String(),
		IsLocked:         p.IsLocked,
		FitnessLevel:     p.FitnessLevel,
		Goals:            []GoalSnapshot{},
		Constraints:      []ConstraintSnapshot{},
		MealSchedules:    []MealTimeSnapshot{},
		WorkoutSchedules: []WorkoutTimeSnapshot{},
		CapturedAt:       at.UTC().Format(time.RFC3339),
	}
	for _, g := range p.Goals {
		s.Goals = append(s.Goals, GoalSnapshot{
			GoalType:                g.GoalType,
			Priority:                g.Priority,
			TargetWeightKg:          g.TargetWeightKg,
			TargetBodyFatPercentage: g.TargetBodyFatPercentage,
		})
	}
	sort.SliceStable(s.Goals, func(i, j int) bool { return s.Goals[i].Priority < s.Goals[j].Priority })

	for _, c := range p.Constraints {
		s.Constraints = append(s.Constraints, ConstraintSnapshot{ConstraintType: c.ConstraintType, Description: c.Description})
	}
	sort.SliceStable(s.Constraints, func(i, j int) bool {
		if s.Constraints[i].ConstraintType != s.Constraints[j].ConstraintType {
			return s.Constraints[i].ConstraintType < s.Constraints[j].ConstraintType
		}
		return s.Constraints[i].Description < s.Constraints[j].Description
	})

	if d := p.DietaryPreference; d != nil {
		s.DietaryPreference = &DietSnapshot{
			DietType:     d.DietType,
			Allergies:    nonNil(d.Allergies),
			Intolerances: nonNil(d.Intolerances),
			Dislikes:     nonNil(d.Dislikes),
		}
	}
	if mp := p.MealPlan; mp != nil {
		s.MealPlan = &MealPlanSnapshot{
			DailyCalorieTarget: mp.DailyCalorieTarget,
			ProteinGrams:       Decimal(mp.ProteinGrams),
			CarbsGrams:         Decimal(mp.CarbsGrams),
			FatsGrams:          Decimal(mp.FatsGrams),
		}
		if len(mp.PlanData) > 0 && string(mp.PlanData) != "null" {
			s.MealPlan.PlanData = json.RawMessage(mp.PlanData)
		}
	}
	for _, m := range p.MealSchedules {
		s.MealSchedules = append(s.MealSchedules, MealTimeSnapshot{
			MealName:            m.MealName,
			ScheduledTime:       ClockString(m.ScheduledTime),
			EnableNotifications: m.EnableNotifications,
		})
	}
	sort.SliceStable(s.MealSchedules, func(i, j int) bool {
		return s.MealSchedules[i].ScheduledTime < s.MealSchedules[j].ScheduledTime
	})
	for _, w := range p.WorkoutSchedules {
		s.WorkoutSchedules = append(s.WorkoutSchedules, WorkoutTimeSnapshot{
			DayOfWeek:           w.DayOfWeek,
			ScheduledTime:       ClockString(w.ScheduledTime),
			EnableNotifications: w.EnableNotifications,
		})
	}
	sort.SliceStable(s.WorkoutSchedules, func(i, j int) bool {
		return s.WorkoutSchedules[i].DayOfWeek < s.WorkoutSchedules[j].DayOfWeek
	})
	if h := p.HydrationPreference; h != nil {
		s.HydrationPreference = &HydrationSnapshot{
			DailyWaterTargetML:       h.DailyWaterTargetML,
			ReminderFrequencyMinutes: h.ReminderFrequencyMinutes,
		}
	}
	if l := p.LifestyleBaseline; l != nil {
		s.LifestyleBaseline = &LifestyleSnapshot{EnergyLevel: l.EnergyLevel, StressLevel: l.StressLevel, SleepQuality: l.SleepQuality}
	}
	if sp := p.SupplementPreference; sp != nil {
		s.SupplementPreference = &SupplementSnapshot{
			InterestedInSupplements: sp.InterestedInSupplements,
			CurrentSupplements:      nonNil(sp.CurrentSupplements),
		}
	}
	return s
}

func (s ProfileSnapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
