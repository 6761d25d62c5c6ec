package onboarding

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/validate"
)

const macroSumTolerance = 0.1

// ValidateStep checks raw against the schema for step and returns the
// normalized payload that is stored under step_<n>. Decoding enforces JSON
// types and presence; ranges, enums and uniqueness come from the validate
// tags on the step structs.
func ValidateStep(step int, raw json.RawMessage) (json.RawMessage, error) {
	if step < 1 || step > TotalStates {
		return nil, apierr.Validation("step", "step must be between 1 and %d", TotalStates)
	}
	obj := map[string]any{}
	if len(raw) == 0 {
		return nil, apierr.Validation("payload", "payload is required")
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, apierr.Validation("payload", "payload must be a JSON object")
	}
	out, err := decodeStep(step, obj)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(out); err != nil {
		return nil, err
	}
	if s5, ok := out.(Step5); ok {
		if err := CheckMacroSum(s5.ProteinPercentage, s5.CarbsPercentage, s5.FatsPercentage); err != nil {
			return nil, err
		}
	}
	b, mErr := json.Marshal(out)
	if mErr != nil {
		return nil, apierr.Validation("payload", "payload could not be encoded")
	}
	return b, nil
}

// Decode unmarshals a stored step payload into its typed form.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode step payload: %w", err)
	}
	return out, nil
}

func decodeStep(step int, obj map[string]any) (any, error) {
	switch step {
	case 1:
		lvl, err := stringField(obj, "fitness_level", "fitness_level")
		return Step1{FitnessLevel: strings.ToLower(lvl)}, err
	case 2:
		goals, err := decodeGoals(obj)
		return Step2{Goals: goals}, err
	case 3:
		return decodeStep3(obj)
	case 4:
		return decodeStep4(obj)
	case 5:
		return decodeStep5(obj)
	case 6:
		meals, err := decodeMeals(obj)
		return Step6{Meals: meals}, err
	case 7:
		slots, err := decodeWorkouts(obj)
		return Step7{Workouts: slots}, err
	case 8:
		return decodeStep8(obj)
	default:
		return decodeStep9(obj)
	}
}

func decodeGoals(obj map[string]any) ([]GoalInput, error) {
	items, err := objectList(obj, "goals")
	if err != nil {
		return nil, err
	}
	out := make([]GoalInput, 0, len(items))
	for i, g := range items {
		path := fmt.Sprintf("goals[%d]", i)
		gt, err := stringField(g, "goal_type", path+".goal_type")
		if err != nil {
			return nil, err
		}
		prio, err := intField(g, "priority", path+".priority")
		if err != nil {
			return nil, err
		}
		goal := GoalInput{GoalType: strings.ToLower(gt), Priority: prio}
		if goal.TargetWeightKg, err = optionalNumber(g, "target_weight_kg", path+".target_weight_kg"); err != nil {
			return nil, err
		}
		if goal.TargetBodyFatPercentage, err = optionalNumber(g, "target_body_fat_percentage", path+".target_body_fat_percentage"); err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, nil
}

func decodeStep3(obj map[string]any) (Step3, error) {
	var (
		s   Step3
		err error
	)
	if s.Equipment, err = stringList(obj, "equipment", true); err != nil {
		return Step3{}, err
	}
	if s.Injuries, err = stringList(obj, "injuries", true); err != nil {
		return Step3{}, err
	}
	if s.Limitations, err = stringList(obj, "limitations", true); err != nil {
		return Step3{}, err
	}
	return s, nil
}

func decodeStep4(obj map[string]any) (Step4, error) {
	var (
		s   Step4
		err error
	)
	if s.DietType, err = stringField(obj, "diet_type", "diet_type"); err != nil {
		return Step4{}, err
	}
	s.DietType = strings.ToLower(s.DietType)
	if s.Allergies, err = stringList(obj, "allergies", true); err != nil {
		return Step4{}, err
	}
	if s.Intolerances, err = stringList(obj, "intolerances", true); err != nil {
		return Step4{}, err
	}
	if s.Dislikes, err = stringList(obj, "dislikes", true); err != nil {
		return Step4{}, err
	}
	return s, nil
}

func decodeStep5(obj map[string]any) (Step5, error) {
	var (
		s   Step5
		err error
	)
	if s.DailyCalorieTarget, err = intField(obj, "daily_calorie_target", "daily_calorie_target"); err != nil {
		return Step5{}, err
	}
	if s.ProteinPercentage, err = numberField(obj, "protein_percentage", "protein_percentage"); err != nil {
		return Step5{}, err
	}
	if s.CarbsPercentage, err = numberField(obj, "carbs_percentage", "carbs_percentage"); err != nil {
		return Step5{}, err
	}
	if s.FatsPercentage, err = numberField(obj, "fats_percentage", "fats_percentage"); err != nil {
		return Step5{}, err
	}
	return s, nil
}

// CheckMacroSum requires the three percentages to add up to 100 within 0.1.
func CheckMacroSum(protein, carbs, fats float64) error {
	sum := protein + carbs + fats
	if math.Abs(sum-100) > macroSumTolerance+1e-9 {
		return apierr.Validation("macro_percentages", "macro percentages must sum to 100 (got %.2f)", sum)
	}
	return nil
}

func decodeMeals(obj map[string]any) ([]MealSlot, error) {
	items, err := objectList(obj, "meals")
	if err != nil {
		return nil, err
	}
	out := make([]MealSlot, 0, len(items))
	for i, m := range items {
		path := fmt.Sprintf("meals[%d]", i)
		name, err := stringField(m, "meal_name", path+".meal_name")
		if err != nil {
			return nil, err
		}
		at, err := stringField(m, "scheduled_time", path+".scheduled_time")
		if err != nil {
			return nil, err
		}
		notify, err := boolField(m, "enable_notifications", path+".enable_notifications", true)
		if err != nil {
			return nil, err
		}
		out = append(out, MealSlot{MealName: name, ScheduledTime: at, EnableNotifications: notify})
	}
	return out, nil
}

func decodeWorkouts(obj map[string]any) ([]WorkoutSlot, error) {
	items, err := objectList(obj, "workouts")
	if err != nil {
		return nil, err
	}
	out := make([]WorkoutSlot, 0, len(items))
	for i, w := range items {
		path := fmt.Sprintf("workouts[%d]", i)
		day, err := intField(w, "day_of_week", path+".day_of_week")
		if err != nil {
			return nil, err
		}
		at, err := stringField(w, "scheduled_time", path+".scheduled_time")
		if err != nil {
			return nil, err
		}
		notify, err := boolField(w, "enable_notifications", path+".enable_notifications", true)
		if err != nil {
			return nil, err
		}
		out = append(out, WorkoutSlot{DayOfWeek: day, ScheduledTime: at, EnableNotifications: notify})
	}
	return out, nil
}

func decodeStep8(obj map[string]any) (Step8, error) {
	var (
		s   Step8
		err error
	)
	if s.DailyWaterTargetML, err = intField(obj, "daily_water_target_ml", "daily_water_target_ml"); err != nil {
		return Step8{}, err
	}
	if s.ReminderFrequencyMinutes, err = intField(obj, "reminder_frequency_minutes", "reminder_frequency_minutes"); err != nil {
		return Step8{}, err
	}
	return s, nil
}

func decodeStep9(obj map[string]any) (Step9, error) {
	v, ok := obj["interested_in_supplements"]
	if !ok || v == nil {
		return Step9{}, apierr.Validation("interested_in_supplements", "interested_in_supplements is required")
	}
	b, ok := v.(bool)
	if !ok {
		return Step9{}, apierr.Validation("interested_in_supplements", "interested_in_supplements must be a boolean")
	}
	list, err := stringList(obj, "current_supplements", false)
	if err != nil {
		return Step9{}, err
	}
	return Step9{InterestedInSupplements: b, CurrentSupplements: list}, nil
}

// stringField returns the trimmed string under key. A missing key is the
// empty string, left to the required tag.
func stringField(obj map[string]any, key, path string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apierr.Validation(path, "%s must be a string", path)
	}
	return strings.TrimSpace(s), nil
}

func numberField(obj map[string]any, key, path string) (float64, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, apierr.Validation(path, "%s is required", path)
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apierr.Validation(path, "%s must be a number", path)
	}
	return f, nil
}

func optionalNumber(obj map[string]any, key, path string) (*float64, error) {
	if v, ok := obj[key]; !ok || v == nil {
		return nil, nil
	}
	f, err := numberField(obj, key, path)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func intField(obj map[string]any, key, path string) (int, error) {
	f, err := numberField(obj, key, path)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, apierr.Validation(path, "%s must be an integer", path)
	}
	return int(f), nil
}

func boolField(obj map[string]any, key, path string, def bool) (bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, apierr.Validation(path, "%s must be a boolean", path)
	}
	return b, nil
}

// objectList requires key to hold an array of objects. Its length is
// checked by the struct tags.
func objectList(obj map[string]any, key string) ([]map[string]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, apierr.Validation(key, "%s is required", key)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, apierr.Validation(key, "%s must be an array", key)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			path := fmt.Sprintf("%s[%d]", key, i)
			return nil, apierr.Validation(path, "%s must be an object", path)
		}
		out = append(out, m)
	}
	return out, nil
}

// stringList trims entries and drops blanks. A missing optional key yields an empty list.
func stringList(obj map[string]any, key string, required bool) ([]string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		if required {
			return nil, apierr.Validation(key, "%s is required", key)
		}
		return []string{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, apierr.Validation(key, "%s must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, apierr.Validation(fmt.Sprintf("%s[%d]", key, i), "%s[%d] must be a string", key, i)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// StringList exposes list normalization to profile updates and agent tools.
func StringList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
