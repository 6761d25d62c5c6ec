package agents

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/workout"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/services"
)

// OnboardingStore is the part of the onboarding service the onboarding agents
// write through.
type OnboardingStore interface {
	GetState(ctx context.Context, userID uuid.UUID) (*types.OnboardingState, error)
	SaveStep(ctx context.Context, userID uuid.UUID, step int, payload json.RawMessage, agentType string) (*services.SaveStepResponse, error)
	SaveAgentContext(ctx context.Context, userID uuid.UUID, bucket string, data map[string]any) (map[string]any, error)
	Verify(ctx context.Context, userID uuid.UUID) (services.VerifyResult, error)
}

type onboardingTools struct {
	store OnboardingStore
}

func stringArray(name, desc string) Param {
	return Param{Name: name, Type: TypeArray, Items: TypeString, Description: desc}
}

func level(name, desc string) Param {
	return Param{Name: name, Type: TypeInteger, Min: num(1), Max: num(10), Description: desc}
}

// saveStep validates and stores one step payload, attributing it to the
// state's owning agent.
func (o onboardingTools) saveStep(ctx context.Context, userID uuid.UUID, step int, payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apierr.Unexpected(err)
	}
	owner, _ := onboarding.AgentForState(step)
	res, err := o.store.SaveStep(ctx, userID, step, raw, owner)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"step": step, "current_state": res.CurrentState}
	if res.NextState != nil {
		out["next_state"] = *res.NextState
	}
	return out, nil
}

// recordStep saves the step first and writes data into the agent's context
// bucket only once the step is accepted, so a rejected payload leaves the
// context as it was.
func (o onboardingTools) recordStep(ctx context.Context, userID uuid.UUID, step int, payload any, bucket string, data map[string]any) ToolResult {
	out, err := o.saveStep(ctx, userID, step, payload)
	if err != nil {
		return Fail(err)
	}
	if _, err := o.store.SaveAgentContext(ctx, userID, bucket, data); err != nil {
		return Fail(err)
	}
	return OK(out)
}

func (o onboardingTools) bucket(ctx context.Context, userID uuid.UUID, name string) (map[string]any, error) {
	st, err := o.store.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	ctxs, err := st.Contexts()
	if err != nil {
		return nil, apierr.Unexpected(err)
	}
	return ctxs[name], nil
}

func (o onboardingTools) fitnessAssessment() []Tool {
	return []Tool{{
		Name:        "save_fitness_assessment",
		Description: "Store the user's fitness level and training background.",
		Params: []Param{
			{Name: "fitness_level", Type: TypeString, Required: true, Enum: onboarding.FitnessLevels},
			{Name: "experience_details", Type: TypeString, Required: true, Description: "Training history in the user's words."},
			stringArray("limitations", "Physical limitations mentioned by the user."),
			level("energy_level", "Typical energy, 1-10."),
			level("stress_level", "Typical stress, 1-10."),
			level("sleep_quality", "Sleep quality, 1-10."),
		},
		Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
			return o.recordStep(ctx, env.User.UserID(), 1, onboarding.Step1{FitnessLevel: argString(args, "fitness_level")},
				AgentFitnessAssessment, args)
		},
	}}
}

func (o onboardingTools) goalSetting() []Tool {
	return []Tool{{
		Name:        "save_fitness_goals",
		Description: "Store the user's primary goal and optional secondary goal.",
		Params: []Param{
			{Name: "primary_goal", Type: TypeString, Required: true, Enum: onboarding.GoalTypes},
			{Name: "secondary_goal", Type: TypeString, Enum: onboarding.GoalTypes},
			{Name: "target_weight_kg", Type: TypeNumber, Min: num(30), Max: num(300)},
			{Name: "target_body_fat_percentage", Type: TypeNumber, Min: num(3), Max: num(50)},
		},
		Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
			primary := onboarding.GoalInput{GoalType: argString(args, "primary_goal"), Priority: 1}
			if w, ok := argFloat(args, "target_weight_kg"); ok {
				primary.TargetWeightKg = &w
			}
			if bf, ok := argFloat(args, "target_body_fat_percentage"); ok {
				primary.TargetBodyFatPercentage = &bf
			}
			goals := []onboarding.GoalInput{primary}
			if sec := argString(args, "secondary_goal"); sec != "" && sec != primary.GoalType {
				goals = append(goals, onboarding.GoalInput{GoalType: sec, Priority: 2})
			}
			return o.recordStep(ctx, env.User.UserID(), 2, onboarding.Step2{Goals: goals}, AgentGoalSetting, args)
		},
	}}
}

func (o onboardingTools) workoutPlanning() []Tool {
	exercise := []Param{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "sets", Type: TypeInteger, Required: true, Min: num(1), Max: num(10)},
		{Name: "reps", Type: TypeString, Required: true, Description: "Reps or a range such as 8-12."},
		{Name: "rest_seconds", Type: TypeInteger, Min: num(0), Max: num(600)},
	}
	day := []Param{
		{Name: "day_of_week", Type: TypeInteger, Required: true, Min: num(0), Max: num(6), Description: "0=Monday"},
		{Name: "focus", Type: TypeString, Required: true},
		{Name: "exercises", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Properties: exercise},
	}
	return []Tool{
		{
			Name:        "save_workout_constraints",
			Description: "Store available equipment, injuries and limitations.",
			Params: []Param{
				stringArray("equipment", "Equipment the user can use."),
				stringArray("injuries", "Current or past injuries."),
				stringArray("limitations", "Other limitations."),
			},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				step := onboarding.Step3{
					Equipment:   argStrings(args, "equipment"),
					Injuries:    argStrings(args, "injuries"),
					Limitations: argStrings(args, "limitations"),
				}
				return o.recordStep(ctx, env.User.UserID(), 3, step, AgentWorkoutPlanning, map[string]any{"constraints": step})
			},
		},
		{
			Name:        "propose_workout_plan",
			Description: "Store a proposed workout plan for the user to review. Replaces any earlier proposal.",
			Params: []Param{
				{Name: "frequency", Type: TypeInteger, Required: true, Min: num(1), Max: num(7), Description: "Sessions per week."},
				{Name: "split", Type: TypeString, Required: true, Description: "e.g. full_body, upper_lower, push_pull_legs"},
				{Name: "days", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Max: num(7), Properties: day},
				{Name: "notes", Type: TypeString},
			},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				plan, err := workout.DecodePlanData(args)
				if err != nil {
					return Fail(apierr.Validation("days", "workout plan is malformed"))
				}
				if plan.Frequency != len(plan.Days) {
					return Fail(apierr.Validation("frequency", "frequency %d does not match %d planned days", plan.Frequency, len(plan.Days)))
				}
				if _, err := o.store.SaveAgentContext(ctx, env.User.UserID(), AgentWorkoutPlanning, map[string]any{
					"plan":          args,
					"user_approved": false,
				}); err != nil {
					return Fail(err)
				}
				return OK(map[string]any{"plan": args, "exercises": plan.ExerciseNames()})
			},
		},
		{
			Name:        "approve_workout_plan",
			Description: "Mark the proposed workout plan as approved. Call only after the user explicitly agrees.",
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				userID := env.User.UserID()
				b, err := o.bucket(ctx, userID, AgentWorkoutPlanning)
				if err != nil {
					return Fail(err)
				}
				raw := bucketPlan(b)
				if raw == nil {
					return Fail(apierr.Validation("plan", "propose a workout plan before approving it"))
				}
				plan, err := workout.DecodePlanData(raw)
				if err != nil {
					return Fail(apierr.Validation("plan", "stored workout plan is malformed"))
				}
				schedule := make([]map[string]any, 0, len(plan.Days))
				for _, d := range plan.Days {
					schedule = append(schedule, map[string]any{"day_of_week": d.DayOfWeek, "focus": d.Focus})
				}
				if _, err := o.store.SaveAgentContext(ctx, userID, AgentWorkoutPlanning, map[string]any{
					"user_approved": true,
					"schedule":      schedule,
					"approved_at":   time.Now().UTC().Format(time.RFC3339),
				}); err != nil {
					return Fail(err)
				}
				return OK(map[string]any{"approved": true, "schedule": schedule})
			},
		},
	}
}

func (o onboardingTools) dietPlanning() []Tool {
	meal := []Param{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "calories", Type: TypeInteger, Min: num(0), Max: num(3000)},
		{Name: "description", Type: TypeString},
	}
	pct := func(name string) Param {
		return Param{Name: name, Type: TypeNumber, Required: true, Min: num(0), Max: num(100)}
	}
	return []Tool{
		{
			Name:        "save_dietary_preferences",
			Description: "Store diet type, allergies, intolerances and disliked foods.",
			Params: []Param{
				{Name: "diet_type", Type: TypeString, Required: true, Enum: onboarding.DietTypes},
				stringArray("allergies", ""),
				stringArray("intolerances", ""),
				stringArray("dislikes", ""),
			},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				step := onboarding.Step4{
					DietType:     argString(args, "diet_type"),
					Allergies:    argStrings(args, "allergies"),
					Intolerances: argStrings(args, "intolerances"),
					Dislikes:     argStrings(args, "dislikes"),
				}
				return o.recordStep(ctx, env.User.UserID(), 4, step, AgentDietPlanning, map[string]any{"preferences": step})
			},
		},
		{
			Name:        "propose_meal_plan",
			Description: "Store a proposed calorie target and macro split for review. Percentages must sum to 100.",
			Params: []Param{
				{Name: "daily_calorie_target", Type: TypeInteger, Required: true, Min: num(1000), Max: num(5000)},
				pct("protein_percentage"),
				pct("carbs_percentage"),
				pct("fats_percentage"),
				{Name: "meals", Type: TypeArray, Items: TypeObject, Max: num(8), Properties: meal},
				{Name: "notes", Type: TypeString},
			},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				p, _ := argFloat(args, "protein_percentage")
				c, _ := argFloat(args, "carbs_percentage")
				f, _ := argFloat(args, "fats_percentage")
				if err := onboarding.CheckMacroSum(p, c, f); err != nil {
					return Fail(err)
				}
				if _, err := o.store.SaveAgentContext(ctx, env.User.UserID(), AgentDietPlanning, map[string]any{
					"plan":          args,
					"user_approved": false,
				}); err != nil {
					return Fail(err)
				}
				return OK(map[string]any{"plan": args})
			},
		},
		{
			Name:        "approve_meal_plan",
			Description: "Mark the proposed meal plan as approved and store its targets. Call only after the user explicitly agrees.",
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				userID := env.User.UserID()
				b, err := o.bucket(ctx, userID, AgentDietPlanning)
				if err != nil {
					return Fail(err)
				}
				plan, _ := bucketPlan(b).(map[string]any)
				if plan == nil {
					return Fail(apierr.Validation("plan", "propose a meal plan before approving it"))
				}
				kcal, _ := argFloat(plan, "daily_calorie_target")
				p, _ := argFloat(plan, "protein_percentage")
				c, _ := argFloat(plan, "carbs_percentage")
				f, _ := argFloat(plan, "fats_percentage")
				out, err := o.saveStep(ctx, userID, 5, onboarding.Step5{
					DailyCalorieTarget: int(math.Round(kcal)),
					ProteinPercentage:  p,
					CarbsPercentage:    c,
					FatsPercentage:     f,
				})
				if err != nil {
					return Fail(err)
				}
				var schedule any = map[string]any{"meals_per_day": 3}
				if meals, ok := plan["meals"].([]any); ok && len(meals) > 0 {
					schedule = meals
				}
				if _, err := o.store.SaveAgentContext(ctx, userID, AgentDietPlanning, map[string]any{
					"user_approved": true,
					"schedule":      schedule,
					"approved_at":   time.Now().UTC().Format(time.RFC3339),
				}); err != nil {
					return Fail(err)
				}
				out["approved"] = true
				return OK(out)
			},
		},
	}
}

func (o onboardingTools) scheduling() []Tool {
	meal := []Param{
		{Name: "meal_name", Type: TypeString, Required: true},
		{Name: "scheduled_time", Type: TypeString, Required: true, Description: "HH:MM, 24h"},
		{Name: "enable_notifications", Type: TypeBoolean},
	}
	session := []Param{
		{Name: "day_of_week", Type: TypeInteger, Required: true, Min: num(0), Max: num(6), Description: "0=Monday"},
		{Name: "scheduled_time", Type: TypeString, Required: true, Description: "HH:MM, 24h"},
		{Name: "enable_notifications", Type: TypeBoolean},
	}
	return []Tool{
		{
			Name:        "save_meal_schedule",
			Description: "Store the user's meal times.",
			Params:      []Param{{Name: "meals", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Max: num(8), Properties: meal}},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				return o.saveSchedule(ctx, env.User.UserID(), 6, "meals", "meal_schedule", args)
			},
		},
		{
			Name:        "save_workout_schedule",
			Description: "Store the user's workout days and times.",
			Params:      []Param{{Name: "workouts", Type: TypeArray, Items: TypeObject, Required: true, Min: num(1), Max: num(7), Properties: session}},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				return o.saveSchedule(ctx, env.User.UserID(), 7, "workouts", "workout_schedule", args)
			},
		},
		{
			Name:        "save_hydration_preferences",
			Description: "Store the daily water target and how often to remind the user.",
			Params: []Param{
				{Name: "target_ml", Type: TypeInteger, Required: true, Min: num(1500), Max: num(5000)},
				{Name: "frequency_hours", Type: TypeNumber, Required: true, Min: num(1), Max: num(4)},
			},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				target, _ := argInt(args, "target_ml")
				hours, _ := argFloat(args, "frequency_hours")
				step := onboarding.Step8{
					DailyWaterTargetML:       target,
					ReminderFrequencyMinutes: int(math.Round(hours * 60)),
				}
				return o.recordStep(ctx, env.User.UserID(), 8, step, AgentScheduling, map[string]any{
					"hydration_preferences": map[string]any{"target_ml": target, "frequency_hours": hours},
				})
			},
		},
		{
			Name:        "save_supplement_preferences",
			Description: "Store supplement interest and current supplements. Reports whether onboarding can be completed.",
			Params: []Param{
				{Name: "interested_in_supplements", Type: TypeBoolean, Required: true},
				stringArray("current_supplements", ""),
			},
			Run: func(ctx context.Context, env ToolEnv, args map[string]any) ToolResult {
				interested, _ := argBool(args, "interested_in_supplements")
				current := argStrings(args, "current_supplements")
				userID := env.User.UserID()
				out, err := o.saveStep(ctx, userID, 9, onboarding.Step9{
					InterestedInSupplements: interested,
					CurrentSupplements:      current,
				})
				if err != nil {
					return Fail(err)
				}
				if _, err := o.store.SaveAgentContext(ctx, userID, AgentScheduling, map[string]any{
					"supplement_preferences": map[string]any{"interested": interested, "current": current},
				}); err != nil {
					return Fail(err)
				}
				res, err := o.store.Verify(ctx, userID)
				if err != nil {
					return Fail(err)
				}
				st, err := o.store.GetState(ctx, userID)
				if err != nil {
					return Fail(err)
				}
				steps, err := st.CompletedSteps()
				if err != nil {
					return Fail(apierr.Unexpected(err))
				}
				out["verification"] = res
				out["can_complete"] = res.OK && len(steps) == onboarding.TotalStates && !st.IsComplete
				return OK(out)
			},
		},
	}
}

func (o onboardingTools) saveSchedule(ctx context.Context, userID uuid.UUID, step int, key, bucketKey string, args map[string]any) ToolResult {
	items := args[key]
	return o.recordStep(ctx, userID, step, map[string]any{key: items}, AgentScheduling, map[string]any{bucketKey: items})
}

// bucketPlan reads a plan written under either key, "plan" first.
func bucketPlan(bucket map[string]any) any {
	for _, k := range []string{"plan", "proposed_plan"} {
		if v, ok := bucket[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
