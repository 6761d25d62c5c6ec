package agents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// ProfileStore is the part of the profile service the specialists use.
// Every change goes through Update so it is versioned.
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	Update(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.UserProfile, error)
}

type profileTools struct {
	store ProfileStore
}

var mutationParams = []Param{
	{Name: "change_reason", Type: TypeString, Description: "Short reason recorded in the profile history."},
	{Name: "unlock", Type: TypeBoolean, Description: "Set only after the user confirmed unlocking a locked profile."},
}

func withMutationParams(params ...Param) []Param {
	return append(params, mutationParams...)
}

func (p profileTools) snapshot(ctx context.Context, userID uuid.UUID) (profile.ProfileSnapshot, error) {
	prof, err := p.store.Get(ctx, userID)
	if err != nil {
		return profile.ProfileSnapshot{}, err
	}
	return profile.NewSnapshot(prof, time.Now()), nil
}

func (p profileTools) read(name, desc string, pick func(s profile.ProfileSnapshot, uc UserContext) any) Tool {
	return Tool{
		Name:        name,
		Description: desc,
		Run: func(ctx context.Context, env ToolEnv, _ map[string]any) ToolResult {
			s, err := p.snapshot(ctx, env.User.UserID())
			if err != nil {
				return Fail(err)
			}
			return OK(pick(s, env.User))
		},
	}
}

// mutate decodes validated args into a ProfileUpdate and applies it. A
// locked profile comes back to the model flagged for confirmation.
func (p profileTools) mutate(name, desc string, params []Param) Tool {
	return Tool{
		Name:        name,
		Description: desc,
		Params:      withMutationParams(params...),
		Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
			upd, err := decodeUpdate(args)
			if err != nil {
				return Fail(err)
			}
			if !upd.HasChanges() && !upd.Unlock {
				return Fail(apierr.Validation("", "nothing to change"))
			}
			prof, err := p.store.Update(ctx, env.User.UserID(), upd)
			if err != nil {
				res := Fail(err)
				if apierr.Is(err, apierr.CodeProfileLocked) {
					res = res.WithMetadata("requires_confirmation", true)
				}
				return res
			}
			return OK(profile.NewSnapshot(prof, time.Now()))
		},
	}
}

func decodeUpdate(args map[string]any) (types.ProfileUpdate, error) {
	var upd types.ProfileUpdate
	raw, err := json.Marshal(args)
	if err != nil {
		return upd, apierr.Unexpected(err)
	}
	if err := json.Unmarshal(raw, &upd); err != nil {
		return upd, apierr.Validation("", "arguments do not match the profile shape")
	}
	return upd, nil
}

var (
	mealSlotParams = []Param{
		{Name: "meal_name", Type: TypeString, Required: true},
		{Name: "scheduled_time", Type: TypeString, Required: true, Description: "HH:MM, 24h"},
		{Name: "enable_notifications", Type: TypeBoolean},
	}
	workoutSlotParams = []Param{
		{Name: "day_of_week", Type: TypeInteger, Required: true, Min: num(0), Max: num(6), Description: "0=Monday"},
		{Name: "scheduled_time", Type: TypeString, Required: true, Description: "HH:MM, 24h"},
		{Name: "enable_notifications", Type: TypeBoolean},
	}
	goalParams = []Param{
		{Name: "goal_type", Type: TypeString, Required: true, Enum: onboarding.GoalTypes},
		{Name: "priority", Type: TypeInteger, Required: true, Min: num(1), Max: num(3)},
		{Name: "target_weight_kg", Type: TypeNumber, Min: num(30), Max: num(300)},
		{Name: "target_body_fat_percentage", Type: TypeNumber, Min: num(3), Max: num(50)},
	}
)

func (p profileTools) getProfile() Tool {
	return p.read("get_profile", "Read the user's full profile.", func(s profile.ProfileSnapshot, _ UserContext) any { return s })
}

func (p profileTools) updateWorkoutSchedule() Tool {
	return p.mutate("update_workout_schedule", "Replace the user's workout days and times.", []Param{
		{Name: "workout_schedules", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Max: num(7), Properties: workoutSlotParams},
	})
}

func (p profileTools) updateMealSchedule() Tool {
	return p.mutate("update_meal_schedule", "Replace the user's meal times.", []Param{
		{Name: "meal_schedules", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Max: num(8), Properties: mealSlotParams},
	})
}

func (p profileTools) workout() []Tool {
	return []Tool{
		{
			Name:        "get_workout_plan",
			Description: "Read the user's current workout plan.",
			Run: func(ctx context.Context, env ToolEnv, _ map[string]any) ToolResult {
				plan := env.User.WorkoutPlan()
				if len(plan) == 0 {
					return OK(map[string]any{"plan": nil, "message": "no workout plan on file"})
				}
				return OK(map[string]any{"plan": plan})
			},
		},
		p.getProfile(),
		p.updateWorkoutSchedule(),
		p.mutate("update_training_constraints", "Replace equipment, injuries or limitations. Omitted lists stay unchanged.", []Param{
			stringArray("equipment", ""),
			stringArray("injuries", ""),
			stringArray("limitations", ""),
		}),
		p.mutate("update_fitness_level", "Change the user's fitness level.", []Param{
			{Name: "fitness_level", Type: TypeString, Required: true, Enum: onboarding.FitnessLevels},
		}),
	}
}

func (p profileTools) diet() []Tool {
	return []Tool{
		p.read("get_meal_plan", "Read the user's calorie target, macros and dietary preferences.", func(s profile.ProfileSnapshot, uc UserContext) any {
			return map[string]any{
				"meal_plan":          s.MealPlan,
				"dietary_preference": s.DietaryPreference,
				"plan_details":       uc.MealPlan(),
			}
		}),
		p.mutate("update_nutrition_targets", "Change the calorie target or macro grams.", []Param{
			{Name: "daily_calorie_target", Type: TypeInteger, Min: num(1000), Max: num(5000)},
			{Name: "protein_grams", Type: TypeNumber, Min: num(0), Max: num(1000)},
			{Name: "carbs_grams", Type: TypeNumber, Min: num(0), Max: num(1000)},
			{Name: "fats_grams", Type: TypeNumber, Min: num(0), Max: num(1000)},
		}),
		p.mutate("update_dietary_preferences", "Change diet type, allergies, intolerances or dislikes.", []Param{
			{Name: "diet_type", Type: TypeString, Enum: onboarding.DietTypes},
			stringArray("allergies", ""),
			stringArray("intolerances", ""),
			stringArray("dislikes", ""),
		}),
	}
}

func (p profileTools) supplement() []Tool {
	return []Tool{
		p.read("get_supplement_preferences", "Read the user's supplement preferences.", func(s profile.ProfileSnapshot, _ UserContext) any {
			return map[string]any{"supplement_preference": s.SupplementPreference, "goals": s.Goals}
		}),
		p.mutate("update_supplement_preferences", "Change supplement interest or the current supplement list.", []Param{
			{Name: "interested_in_supplements", Type: TypeBoolean},
			stringArray("current_supplements", ""),
		}),
	}
}

func (p profileTools) tracker() []Tool {
	return []Tool{
		p.read("get_progress_summary", "Read goals, lifestyle baseline and current energy.", func(s profile.ProfileSnapshot, uc UserContext) any {
			return map[string]any{
				"goals":              s.Goals,
				"lifestyle_baseline": s.LifestyleBaseline,
				"energy":             uc.EnergyLevel(),
				"fitness_level":      s.FitnessLevel,
			}
		}),
		p.mutate("log_lifestyle", "Record an energy, stress or sleep check-in (1-10).", []Param{
			level("energy_level", ""),
			level("stress_level", ""),
			level("sleep_quality", ""),
		}),
		p.mutate("update_goals", "Replace the user's goals.", []Param{
			{Name: "goals", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Max: num(3), Properties: goalParams},
		}),
	}
}

func (p profileTools) scheduler() []Tool {
	return []Tool{
		p.read("get_schedules", "Read meal times, workout times and hydration reminders.", func(s profile.ProfileSnapshot, _ UserContext) any {
			return map[string]any{
				"meal_schedules":       s.MealSchedules,
				"workout_schedules":    s.WorkoutSchedules,
				"hydration_preference": s.HydrationPreference,
			}
		}),
		p.updateMealSchedule(),
		p.updateWorkoutSchedule(),
		p.mutate("update_hydration", "Change the daily water target or reminder frequency.", []Param{
			{Name: "daily_water_target_ml", Type: TypeInteger, Min: num(1500), Max: num(5000)},
			{Name: "reminder_frequency_minutes", Type: TypeInteger, Min: num(15), Max: num(240)},
		}),
	}
}
