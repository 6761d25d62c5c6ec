package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/validate"
)

type ProfileAggregateDeps struct {
	Base BaseDeps

	Profiles repos.UserProfileRepo
	Versions repos.ProfileVersionRepo
}

type profileAggregate struct {
	deps ProfileAggregateDeps
}

func NewProfileAggregate(deps ProfileAggregateDeps) domainagg.ProfileAggregate {
	deps.Base = deps.Base.withDefaults()
	return &profileAggregate{deps: deps}
}

func (a *profileAggregate) Contract() domainagg.Contract {
	return domainagg.ProfileAggregateContract
}

func (a *profileAggregate) Update(ctx context.Context, in domainagg.UpdateProfileInput) (domainagg.UpdateProfileResult, error) {
	const op = "Profile.Profile.Update"
	var out domainagg.UpdateProfileResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if a.deps.Profiles == nil || a.deps.Versions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "profile aggregate repos not configured", nil)
	}
	upd := in.Update
	if err := normalizeUpdate(&upd); err != nil {
		return out, err
	}
	at := eventTime(in.EventAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		root, err := a.deps.Profiles.LockByUserID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if root == nil {
			return apierr.UserNotFound(in.UserID.String())
		}
		if root.IsLocked && !upd.Unlock {
			return apierr.ProfileLocked()
		}
		pre, err := a.deps.Profiles.GetFullByUserID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if pre == nil {
			return InvariantError("locked profile not visible in transaction")
		}
		snap, err := profile.NewSnapshot(pre, at).JSON()
		if err != nil {
			return err
		}

		rootUpdates := map[string]any{}
		if root.IsLocked && upd.Unlock {
			rootUpdates["is_locked"] = false
			out.Unlocked = true
		}
		if upd.FitnessLevel != nil {
			rootUpdates["fitness_level"] = *upd.FitnessLevel
		}
		if len(rootUpdates) > 0 {
			rootUpdates["updated_at"] = at
			if err := a.deps.Profiles.UpdateFields(dbc, root.ID, rootUpdates); err != nil {
				return err
			}
		}
		if err := a.applyChildren(dbc, pre, upd); err != nil {
			return err
		}

		max, err := a.deps.Versions.MaxVersion(dbc, root.ID)
		if err != nil {
			return err
		}
		v, err := a.deps.Versions.Create(dbc, &types.ProfileVersion{
			ProfileID:     root.ID,
			VersionNumber: max + 1,
			ChangeReason:  upd.Reason(),
			Snapshot:      datatypes.JSON(snap),
		})
		if err != nil {
			return err
		}
		out.ProfileID = root.ID
		out.VersionNumber = v.VersionNumber
		return nil
	})
	if err != nil {
		return domainagg.UpdateProfileResult{}, err
	}
	return out, nil
}

func (a *profileAggregate) SetLock(ctx context.Context, in domainagg.SetLockInput) (domainagg.SetLockResult, error) {
	const op = "Profile.Profile.SetLock"
	var out domainagg.SetLockResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if a.deps.Profiles == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "profile aggregate repos not configured", nil)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		root, err := a.deps.Profiles.LockByUserID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if root == nil {
			return apierr.UserNotFound(in.UserID.String())
		}
		out.ProfileID = root.ID
		out.IsLocked = in.Locked
		if root.IsLocked == in.Locked {
			return nil
		}
		out.Changed = true
		return a.deps.Profiles.UpdateFields(dbc, root.ID, map[string]any{
			"is_locked":  in.Locked,
			"updated_at": time.Now().UTC(),
		})
	})
	return out, err
}

func (a *profileAggregate) applyChildren(dbc dbctx.Context, pre *types.UserProfile, u profile.ProfileUpdate) error {
	r := a.deps.Profiles
	pid := pre.ID

	if u.Goals != nil {
		goals := make([]types.FitnessGoal, 0, len(*u.Goals))
		for _, g := range *u.Goals {
			goals = append(goals, types.FitnessGoal{
				GoalType:                g.GoalType,
				Priority:                g.Priority,
				TargetWeightKg:          g.TargetWeightKg,
				TargetBodyFatPercentage: g.TargetBodyFatPercentage,
			})
		}
		if err := r.ReplaceGoals(dbc, pid, goals); err != nil {
			return err
		}
	}
	for kind, list := range map[string]*[]string{
		profile.ConstraintEquipment:  u.Equipment,
		profile.ConstraintInjury:     u.Injuries,
		profile.ConstraintLimitation: u.Limitations,
	} {
		if list == nil {
			continue
		}
		if err := r.ReplaceConstraints(dbc, pid, kind, *list); err != nil {
			return err
		}
	}

	if u.DietType != nil || u.Allergies != nil || u.Intolerances != nil || u.Dislikes != nil {
		row := types.DietaryPreference{}
		if pre.DietaryPreference != nil {
			row = *pre.DietaryPreference
		}
		row.ID = uuid.Nil
		updates := map[string]any{}
		if u.DietType != nil {
			row.DietType = *u.DietType
			updates["diet_type"] = row.DietType
		}
		if u.Allergies != nil {
			row.Allergies = *u.Allergies
			updates["allergies"] = datatypes.JSONSlice[string](*u.Allergies)
		}
		if u.Intolerances != nil {
			row.Intolerances = *u.Intolerances
			updates["intolerances"] = datatypes.JSONSlice[string](*u.Intolerances)
		}
		if u.Dislikes != nil {
			row.Dislikes = *u.Dislikes
			updates["dislikes"] = datatypes.JSONSlice[string](*u.Dislikes)
		}
		if pre.DietaryPreference == nil && row.DietType == "" {
			return apierr.Validation("diet_type", "diet_type is required when no dietary preference exists")
		}
		if err := r.UpsertChild(dbc, pid, &row, updates); err != nil {
			return err
		}
	}

	if u.DailyCalorieTarget != nil || u.ProteinGrams != nil || u.CarbsGrams != nil || u.FatsGrams != nil {
		row := types.MealPlan{}
		if pre.MealPlan != nil {
			row = *pre.MealPlan
		}
		row.ID = uuid.Nil
		updates := map[string]any{}
		if u.DailyCalorieTarget != nil {
			row.DailyCalorieTarget = *u.DailyCalorieTarget
			updates["daily_calorie_target"] = row.DailyCalorieTarget
		}
		if u.ProteinGrams != nil {
			row.ProteinGrams = profile.Round2(*u.ProteinGrams)
			updates["protein_grams"] = row.ProteinGrams
		}
		if u.CarbsGrams != nil {
			row.CarbsGrams = profile.Round2(*u.CarbsGrams)
			updates["carbs_grams"] = row.CarbsGrams
		}
		if u.FatsGrams != nil {
			row.FatsGrams = profile.Round2(*u.FatsGrams)
			updates["fats_grams"] = row.FatsGrams
		}
		if pre.MealPlan == nil && row.DailyCalorieTarget == 0 {
			return apierr.Validation("daily_calorie_target", "daily_calorie_target is required when no meal plan exists")
		}
		if err := r.UpsertChild(dbc, pid, &row, updates); err != nil {
			return err
		}
	}

	if u.MealSchedules != nil {
		rows := make([]types.MealSchedule, 0, len(*u.MealSchedules))
		for _, m := range *u.MealSchedules {
			rows = append(rows, types.MealSchedule{
				MealName:            m.MealName,
				ScheduledTime:       profile.ClockString(m.ScheduledTime),
				EnableNotifications: m.EnableNotifications,
			})
		}
		if err := r.ReplaceMealSchedules(dbc, pid, rows); err != nil {
			return err
		}
	}
	if u.WorkoutSchedules != nil {
		rows := make([]types.WorkoutSchedule, 0, len(*u.WorkoutSchedules))
		for _, w := range *u.WorkoutSchedules {
			rows = append(rows, types.WorkoutSchedule{
				DayOfWeek:           w.DayOfWeek,
				ScheduledTime:       profile.ClockString(w.ScheduledTime),
				EnableNotifications: w.EnableNotifications,
			})
		}
		if err := r.ReplaceWorkoutSchedules(dbc, pid, rows); err != nil {
			return err
		}
	}

	if u.DailyWaterTargetML != nil || u.ReminderFrequencyMinutes != nil {
		row := types.HydrationPreference{DailyWaterTargetML: 2000, ReminderFrequencyMinutes: 60}
		if pre.HydrationPreference != nil {
			row = *pre.HydrationPreference
		}
		row.ID = uuid.Nil
		updates := map[string]any{}
		if u.DailyWaterTargetML != nil {
			row.DailyWaterTargetML = *u.DailyWaterTargetML
			updates["daily_water_target_ml"] = row.DailyWaterTargetML
		}
		if u.ReminderFrequencyMinutes != nil {
			row.ReminderFrequencyMinutes = *u.ReminderFrequencyMinutes
			updates["reminder_frequency_minutes"] = row.ReminderFrequencyMinutes
		}
		if err := r.UpsertChild(dbc, pid, &row, updates); err != nil {
			return err
		}
	}

	if u.EnergyLevel != nil || u.StressLevel != nil || u.SleepQuality != nil {
		row := types.LifestyleBaseline{EnergyLevel: 5, StressLevel: 5, SleepQuality: 5}
		if pre.LifestyleBaseline != nil {
			row = *pre.LifestyleBaseline
		}
		row.ID = uuid.Nil
		updates := map[string]any{}
		if u.EnergyLevel != nil {
			row.EnergyLevel = *u.EnergyLevel
			updates["energy_level"] = row.EnergyLevel
		}
		if u.StressLevel != nil {
			row.StressLevel = *u.StressLevel
			updates["stress_level"] = row.StressLevel
		}
		if u.SleepQuality != nil {
			row.SleepQuality = *u.SleepQuality
			updates["sleep_quality"] = row.SleepQuality
		}
		if err := r.UpsertChild(dbc, pid, &row, updates); err != nil {
			return err
		}
	}

	if u.InterestedInSupplements != nil || u.CurrentSupplements != nil {
		row := types.SupplementPreference{CurrentSupplements: []string{}}
		if pre.SupplementPreference != nil {
			row = *pre.SupplementPreference
		}
		row.ID = uuid.Nil
		updates := map[string]any{}
		if u.InterestedInSupplements != nil {
			row.InterestedInSupplements = *u.InterestedInSupplements
			updates["interested_in_supplements"] = row.InterestedInSupplements
		}
		if u.CurrentSupplements != nil {
			row.CurrentSupplements = *u.CurrentSupplements
			updates["current_supplements"] = datatypes.JSONSlice[string](*u.CurrentSupplements)
		}
		if err := r.UpsertChild(dbc, pid, &row, updates); err != nil {
			return err
		}
	}
	return nil
}

// normalizeUpdate validates u with the onboarding step rules where a field
// has one, and the struct tags for the rest. Lists are trimmed in place.
func normalizeUpdate(u *profile.ProfileUpdate) error {
	if u.FitnessLevel != nil {
		s, err := revalidate[onboarding.Step1](1, map[string]any{"fitness_level": *u.FitnessLevel})
		if err != nil {
			return err
		}
		u.FitnessLevel = &s.FitnessLevel
	}
	if u.Goals != nil {
		s, err := revalidate[onboarding.Step2](2, map[string]any{"goals": *u.Goals})
		if err != nil {
			return err
		}
		u.Goals = &s.Goals
	}
	if u.DietType != nil {
		s, err := revalidate[onboarding.Step4](4, map[string]any{"diet_type": *u.DietType})
		if err != nil {
			return err
		}
		u.DietType = &s.DietType
	}
	if u.MealSchedules != nil {
		s, err := revalidate[onboarding.Step6](6, map[string]any{"meals": *u.MealSchedules})
		if err != nil {
			return err
		}
		u.MealSchedules = &s.Meals
	}
	if u.WorkoutSchedules != nil {
		s, err := revalidate[onboarding.Step7](7, map[string]any{"workouts": *u.WorkoutSchedules})
		if err != nil {
			return err
		}
		u.WorkoutSchedules = &s.Workouts
	}
	for _, list := range []*[]string{u.Equipment, u.Injuries, u.Limitations, u.Allergies, u.Intolerances, u.Dislikes, u.CurrentSupplements} {
		if list != nil {
			*list = onboarding.StringList(*list)
		}
	}

	return validate.Struct(u)
}

// revalidate runs a partial payload through the step validator. Only steps
// whose other keys are optional or absent-tolerant are passed here.
func revalidate[T any](step int, payload map[string]any) (T, error) {
	var zero T
	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, apierr.Validation("payload", "payload could not be encoded")
	}
	clean, err := onboarding.ValidateStep(step, completeStepPayload(step, raw))
	if err != nil {
		return zero, err
	}
	return onboarding.Decode[T](clean)
}

// completeStepPayload fills the list keys step 4 requires so a lone
// diet_type can be validated.
func completeStepPayload(step int, raw json.RawMessage) json.RawMessage {
	if step != 4 {
		return raw
	}
	obj := map[string]any{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	for _, k := range []string{"allergies", "intolerances", "dislikes"} {
		if _, ok := obj[k]; !ok {
			obj[k] = []string{}
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return b
}
