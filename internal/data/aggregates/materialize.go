package aggregates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/domain/workout"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

const InitialVersionReason = "Initial onboarding"

// Complete validates every stored step and turns the onboarding state into a
// locked profile, its preference rows, the workout plan and version 1, all in
// one transaction. A retryable storage failure is retried once.
func (a *onboardingAggregate) Complete(ctx context.Context, in domainagg.CompleteOnboardingInput) (domainagg.CompleteOnboardingResult, error) {
	const op = "Onboarding.State.Complete"
	var out domainagg.CompleteOnboardingResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if err := a.configured(op); err != nil {
		return out, err
	}
	at := eventTime(in.EventAt)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		out = domainagg.CompleteOnboardingResult{}
		err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
			return a.materialize(dbc, in.UserID, at, &out)
		})
		if err == nil || !domainagg.IsCode(err, domainagg.CodeRetryable) || ctx.Err() != nil {
			break
		}
		if a.deps.Base.Log != nil {
			a.deps.Base.Log.Warn("materialization retry", "user_id", in.UserID, "error", err)
		}
	}
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrStaleState):
		return domainagg.CompleteOnboardingResult{}, apierr.Conflict("onboarding state changed while completing", err)
	case domainagg.IsCode(err, domainagg.CodeConflict):
		return domainagg.CompleteOnboardingResult{}, apierr.MaterializationConflict()
	case domainagg.IsCode(err, domainagg.CodeRetryable):
		return domainagg.CompleteOnboardingResult{}, apierr.Storage(err)
	}
	return domainagg.CompleteOnboardingResult{}, err
}

func (a *onboardingAggregate) materialize(dbc dbctx.Context, userID uuid.UUID, at time.Time, out *domainagg.CompleteOnboardingResult) error {
	st, err := a.lockState(dbc, userID)
	if err != nil {
		return err
	}
	if st.IsComplete {
		return apierr.AlreadyCompleted()
	}
	steps, err := st.Steps()
	if err != nil {
		return err
	}
	normalized := map[int]json.RawMessage{}
	var missing []string
	for n := 1; n <= onboarding.TotalStates; n++ {
		key := onboarding.StepKey(n)
		raw, ok := steps[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		clean, vErr := onboarding.ValidateStep(n, raw)
		if vErr != nil {
			missing = append(missing, key)
			continue
		}
		normalized[n] = clean
	}
	if len(missing) > 0 {
		return apierr.OnboardingIncomplete(missing)
	}

	exists, err := a.deps.Profiles.ExistsForUser(dbc, userID)
	if err != nil {
		return err
	}
	if exists {
		return apierr.MaterializationConflict()
	}

	ctxs, err := st.Contexts()
	if err != nil {
		return err
	}
	p, err := buildProfile(userID, normalized, ctxs)
	if err != nil {
		return err
	}
	if _, err := a.deps.Profiles.Create(dbc, p); err != nil {
		return err
	}
	if err := a.materializeWorkoutPlan(dbc, userID, ctxs[onboarding.AgentWorkoutPlanning]); err != nil {
		return err
	}

	full, err := a.deps.Profiles.GetFullByUserID(dbc, userID)
	if err != nil {
		return err
	}
	if full == nil {
		return InvariantError("materialized profile not visible in transaction")
	}
	snap, err := profile.NewSnapshot(full, at).JSON()
	if err != nil {
		return err
	}
	max, err := a.deps.Versions.MaxVersion(dbc, full.ID)
	if err != nil {
		return err
	}
	v, err := a.deps.Versions.Create(dbc, &types.ProfileVersion{
		ProfileID:     full.ID,
		VersionNumber: max + 1,
		ChangeReason:  InitialVersionReason,
		Snapshot:      datatypes.JSON(snap),
	})
	if err != nil {
		return err
	}

	if err := a.deps.Base.Guard.Advance(dbc, st, map[string]any{
		"is_complete":   true,
		"current_state": onboarding.TotalStates,
		"updated_at":    at,
	}); err != nil {
		return err
	}
	out.Profile = full
	out.VersionNumber = v.VersionNumber
	return nil
}

// buildProfile assembles the locked profile and its children from validated
// step payloads, applying the cross-field checks.
func buildProfile(userID uuid.UUID, steps map[int]json.RawMessage, ctxs map[string]map[string]any) (*types.UserProfile, error) {
	s1, err := onboarding.Decode[onboarding.Step1](steps[1])
	if err != nil {
		return nil, err
	}
	s2, err := onboarding.Decode[onboarding.Step2](steps[2])
	if err != nil {
		return nil, err
	}
	s3, err := onboarding.Decode[onboarding.Step3](steps[3])
	if err != nil {
		return nil, err
	}
	s4, err := onboarding.Decode[onboarding.Step4](steps[4])
	if err != nil {
		return nil, err
	}
	s5, err := onboarding.Decode[onboarding.Step5](steps[5])
	if err != nil {
		return nil, err
	}
	s6, err := onboarding.Decode[onboarding.Step6](steps[6])
	if err != nil {
		return nil, err
	}
	s7, err := onboarding.Decode[onboarding.Step7](steps[7])
	if err != nil {
		return nil, err
	}
	s8, err := onboarding.Decode[onboarding.Step8](steps[8])
	if err != nil {
		return nil, err
	}
	s9, err := onboarding.Decode[onboarding.Step9](steps[9])
	if err != nil {
		return nil, err
	}

	if len(s2.Goals) == 0 {
		return nil, apierr.Validation("goals", "at least one goal is required")
	}
	if err := onboarding.CheckMacroSum(s5.ProteinPercentage, s5.CarbsPercentage, s5.FatsPercentage); err != nil {
		return nil, err
	}
	seenTimes := map[string]bool{}
	for i, m := range s6.Meals {
		t := profile.ClockString(m.ScheduledTime)
		if seenTimes[t] {
			return nil, apierr.Validation(fmt.Sprintf("meals[%d].scheduled_time", i), "meal times must be unique")
		}
		seenTimes[t] = true
	}

	p := &types.UserProfile{
		UserID:       userID,
		IsLocked:     true,
		FitnessLevel: s1.FitnessLevel,
	}
	for _, g := range s2.Goals {
		p.Goals = append(p.Goals, types.FitnessGoal{
			GoalType:                g.GoalType,
			Priority:                g.Priority,
			TargetWeightKg:          g.TargetWeightKg,
			TargetBodyFatPercentage: g.TargetBodyFatPercentage,
		})
	}
	addConstraints := func(kind string, items []string) {
		for _, d := range items {
			p.Constraints = append(p.Constraints, types.PhysicalConstraint{ConstraintType: kind, Description: d})
		}
	}
	addConstraints(profile.ConstraintEquipment, s3.Equipment)
	addConstraints(profile.ConstraintInjury, s3.Injuries)
	addConstraints(profile.ConstraintLimitation, s3.Limitations)

	p.DietaryPreference = &types.DietaryPreference{
		DietType:     s4.DietType,
		Allergies:    nonNilStrings(s4.Allergies),
		Intolerances: nonNilStrings(s4.Intolerances),
		Dislikes:     nonNilStrings(s4.Dislikes),
	}
	p.MealPlan = &types.MealPlan{
		DailyCalorieTarget: s5.DailyCalorieTarget,
		ProteinGrams:       profile.Grams(s5.DailyCalorieTarget, s5.ProteinPercentage, profile.KcalPerGramProtein),
		CarbsGrams:         profile.Grams(s5.DailyCalorieTarget, s5.CarbsPercentage, profile.KcalPerGramCarbs),
		FatsGrams:          profile.Grams(s5.DailyCalorieTarget, s5.FatsPercentage, profile.KcalPerGramFat),
		PlanData:           approvedPlanData(ctxs[onboarding.AgentDietPlanning]),
	}
	for _, m := range s6.Meals {
		p.MealSchedules = append(p.MealSchedules, types.MealSchedule{
			MealName:            m.MealName,
			ScheduledTime:       profile.ClockString(m.ScheduledTime),
			EnableNotifications: m.EnableNotifications,
		})
	}
	for _, w := range s7.Workouts {
		p.WorkoutSchedules = append(p.WorkoutSchedules, types.WorkoutSchedule{
			DayOfWeek:           w.DayOfWeek,
			ScheduledTime:       profile.ClockString(w.ScheduledTime),
			EnableNotifications: w.EnableNotifications,
		})
	}
	p.HydrationPreference = &types.HydrationPreference{
		DailyWaterTargetML:       s8.DailyWaterTargetML,
		ReminderFrequencyMinutes: s8.ReminderFrequencyMinutes,
	}
	p.SupplementPreference = &types.SupplementPreference{
		InterestedInSupplements: s9.InterestedInSupplements,
		CurrentSupplements:      nonNilStrings(s9.CurrentSupplements),
	}
	p.LifestyleBaseline = lifestyleFromBucket(ctxs[onboarding.AgentFitnessAssessment])
	return p, nil
}

func (a *onboardingAggregate) materializeWorkoutPlan(dbc dbctx.Context, userID uuid.UUID, bucket map[string]any) error {
	raw := PlanFromBucket(bucket)
	if raw == nil {
		return nil
	}
	plan, err := workout.DecodePlanData(raw)
	if err != nil {
		if a.deps.Base.Log != nil {
			a.deps.Base.Log.Warn("skipping undecodable workout plan", "user_id", userID, "error", err)
		}
		return nil
	}
	existing, err := a.deps.WorkoutPlans.GetByUserID(dbc, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	names := plan.ExerciseNames()
	if len(plan.Exercises) == 0 {
		plan.Exercises = names
	}
	ids, err := a.deps.Exercises.EnsureByNames(dbc, names)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	row := &types.WorkoutPlan{UserID: userID, PlanData: datatypes.JSON(blob)}
	var linked []uuid.UUID
	for i, d := range plan.Days {
		day := types.WorkoutDay{DayOfWeek: d.DayOfWeek, Focus: d.Focus, Position: i}
		for j, e := range d.Exercises {
			ex := types.WorkoutExercise{
				Name:        e.Name,
				Sets:        e.Sets,
				Reps:        e.Reps,
				RestSeconds: e.RestSeconds,
				Position:    j,
			}
			if id, ok := ids[strings.ToLower(e.Name)]; ok {
				ex.ExerciseID = &id
				linked = append(linked, id)
			}
			day.Exercises = append(day.Exercises, ex)
		}
		row.Days = append(row.Days, day)
	}
	if _, err := a.deps.WorkoutPlans.Create(dbc, row); err != nil {
		return err
	}
	return a.deps.Exercises.IncrementPopularity(dbc, uniqueIDs(linked))
}

// PlanFromBucket returns the plan stored in an agent bucket under "plan",
// falling back to "proposed_plan".
func PlanFromBucket(bucket map[string]any) any {
	if bucket == nil {
		return nil
	}
	if v, ok := bucket["plan"]; ok && v != nil {
		return v
	}
	if v, ok := bucket["proposed_plan"]; ok && v != nil {
		return v
	}
	return nil
}

func approvedPlanData(bucket map[string]any) datatypes.JSON {
	if approved, _ := bucket["user_approved"].(bool); !approved {
		return nil
	}
	plan := PlanFromBucket(bucket)
	if plan == nil {
		return nil
	}
	b, err := json.Marshal(plan)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func lifestyleFromBucket(bucket map[string]any) *types.LifestyleBaseline {
	energy, ok := levelFrom(bucket["energy_level"])
	if !ok {
		return nil
	}
	stress, ok := levelFrom(bucket["stress_level"])
	if !ok {
		stress = 5
	}
	sleep, ok := levelFrom(bucket["sleep_quality"])
	if !ok {
		sleep = 5
	}
	return &types.LifestyleBaseline{EnergyLevel: energy, StressLevel: stress, SleepQuality: sleep}
}

// levelFrom reads a 1..10 integer from a decoded JSON value.
func levelFrom(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if f != float64(int(f)) || f < 1 || f > 10 {
		return 0, false
	}
	return int(f), true
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func uniqueIDs(in []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	out := make([]uuid.UUID, 0, len(in))
	for _, id := range in {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
