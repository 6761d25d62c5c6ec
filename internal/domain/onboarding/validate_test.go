package onboarding

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// valid payloads for steps 1..9
var samplePayloads = map[int]string{
	1: `{"fitness_level":"Intermediate"}`,
	2: `{"goals":[{"goal_type":"muscle_gain","priority":1,"target_weight_kg":82.5},{"goal_type":"strength","priority":2}]}`,
	3: `{"equipment":["dumbbells"," "],"injuries":[],"limitations":["no jumping"]}`,
	4: `{"diet_type":"omnivore","allergies":["peanuts"],"intolerances":[],"dislikes":["olives"]}`,
	5: `{"daily_calorie_target":2100,"protein_percentage":30,"carbs_percentage":40,"fats_percentage":30}`,
	6: `{"meals":[{"meal_name":"Breakfast","scheduled_time":"07:30","enable_notifications":true},{"meal_name":"Dinner","scheduled_time":"19:00"}]}`,
	7: `{"workouts":[{"day_of_week":1,"scheduled_time":"18:00","enable_notifications":true},{"day_of_week":3,"scheduled_time":"18:00","enable_notifications":false}]}`,
	8: `{"daily_water_target_ml":2500,"reminder_frequency_minutes":60}`,
	9: `{"interested_in_supplements":true,"current_supplements":["creatine"]}`,
}

func TestValidateStepAcceptsValidPayloads(t *testing.T) {
	for step, payload := range samplePayloads {
		out, err := ValidateStep(step, json.RawMessage(payload))
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", step, err)
		}
		if len(out) == 0 {
			t.Fatalf("step %d: empty normalized payload", step)
		}
	}
}

func TestValidateStepNormalizes(t *testing.T) {
	out, err := ValidateStep(1, json.RawMessage(samplePayloads[1]))
	if err != nil {
		t.Fatalf("ValidateStep: %v", err)
	}
	s1, err := Decode[Step1](out)
	if err != nil || s1.FitnessLevel != FitnessIntermediate {
		t.Fatalf("step1 = %+v, %v", s1, err)
	}

	out, err = ValidateStep(3, json.RawMessage(samplePayloads[3]))
	if err != nil {
		t.Fatalf("ValidateStep: %v", err)
	}
	s3, _ := Decode[Step3](out)
	if len(s3.Equipment) != 1 || s3.Equipment[0] != "dumbbells" {
		t.Fatalf("equipment not trimmed: %+v", s3.Equipment)
	}

	out, err = ValidateStep(6, json.RawMessage(samplePayloads[6]))
	if err != nil {
		t.Fatalf("ValidateStep: %v", err)
	}
	s6, _ := Decode[Step6](out)
	if !s6.Meals[1].EnableNotifications {
		t.Fatalf("enable_notifications should default to true")
	}
}

func TestValidateStepRejects(t *testing.T) {
	cases := []struct {
		name    string
		step    int
		payload string
		field   string
	}{
		{"step out of range", 10, `{}`, "step"},
		{"not an object", 1, `[1]`, "payload"},
		{"bad level", 1, `{"fitness_level":"elite"}`, "fitness_level"},
		{"no goals", 2, `{"goals":[]}`, "goals"},
		{"too many goals", 2, `{"goals":[{"goal_type":"strength","priority":1},{"goal_type":"endurance","priority":2},{"goal_type":"fat_loss","priority":3},{"goal_type":"maintenance","priority":3}]}`, "goals"},
		{"duplicate priority", 2, `{"goals":[{"goal_type":"strength","priority":1},{"goal_type":"endurance","priority":1}]}`, "goals[1].priority"},
		{"weight out of range", 2, `{"goals":[{"goal_type":"fat_loss","priority":1,"target_weight_kg":20}]}`, "goals[0].target_weight_kg"},
		{"body fat out of range", 2, `{"goals":[{"goal_type":"fat_loss","priority":1,"target_body_fat_percentage":60}]}`, "goals[0].target_body_fat_percentage"},
		{"missing injuries", 3, `{"equipment":[],"limitations":[]}`, "injuries"},
		{"list of numbers", 3, `{"equipment":[1],"injuries":[],"limitations":[]}`, "equipment[0]"},
		{"bad diet", 4, `{"diet_type":"carnivore","allergies":[],"intolerances":[],"dislikes":[]}`, "diet_type"},
		{"calories low", 5, `{"daily_calorie_target":900,"protein_percentage":30,"carbs_percentage":40,"fats_percentage":30}`, "daily_calorie_target"},
		{"pct over 100", 5, `{"daily_calorie_target":2000,"protein_percentage":101,"carbs_percentage":0,"fats_percentage":0}`, "protein_percentage"},
		{"sum off", 5, `{"daily_calorie_target":2000,"protein_percentage":30,"carbs_percentage":40,"fats_percentage":29.8}`, "macro_percentages"},
		{"bad time", 6, `{"meals":[{"meal_name":"Lunch","scheduled_time":"24:00"}]}`, "meals[0].scheduled_time"},
		{"seconds not allowed", 6, `{"meals":[{"meal_name":"Lunch","scheduled_time":"12:00:00"}]}`, "meals[0].scheduled_time"},
		{"too many meals", 6, `{"meals":[{},{},{},{},{},{},{},{},{}]}`, "meals"},
		{"bad day", 7, `{"workouts":[{"day_of_week":7,"scheduled_time":"06:00"}]}`, "workouts[0].day_of_week"},
		{"duplicate day", 7, `{"workouts":[{"day_of_week":2,"scheduled_time":"06:00"},{"day_of_week":2,"scheduled_time":"07:00"}]}`, "workouts[1].day_of_week"},
		{"water low", 8, `{"daily_water_target_ml":1000,"reminder_frequency_minutes":60}`, "daily_water_target_ml"},
		{"reminder high", 8, `{"daily_water_target_ml":2000,"reminder_frequency_minutes":300}`, "reminder_frequency_minutes"},
		{"reminder fractional", 8, `{"daily_water_target_ml":2000,"reminder_frequency_minutes":30.5}`, "reminder_frequency_minutes"},
		{"supplement flag missing", 9, `{"current_supplements":[]}`, "interested_in_supplements"},
		{"level not a string", 1, `{"fitness_level":3}`, "fitness_level"},
		{"level missing", 1, `{}`, "fitness_level"},
		{"goal not an object", 2, `{"goals":["strength"]}`, "goals[0]"},
		{"priority missing", 2, `{"goals":[{"goal_type":"strength"}]}`, "goals[0].priority"},
		{"blank meal name", 6, `{"meals":[{"meal_name":"  ","scheduled_time":"08:00"}]}`, "meals[0].meal_name"},
		{"notifications not a bool", 7, `{"workouts":[{"day_of_week":1,"scheduled_time":"06:00","enable_notifications":"yes"}]}`, "workouts[0].enable_notifications"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateStep(tc.step, json.RawMessage(tc.payload))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			ae, ok := apierr.As(err)
			if !ok || ae.Code != apierr.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ae.Field != tc.field {
				t.Fatalf("field = %q, want %q", ae.Field, tc.field)
			}
		})
	}
}

func TestCheckMacroSumTolerance(t *testing.T) {
	if err := CheckMacroSum(33.3, 33.3, 33.3); err != nil {
		t.Fatalf("99.9 should be within tolerance: %v", err)
	}
	if err := CheckMacroSum(33.4, 33.4, 33.4); err == nil {
		t.Fatalf("100.2 is outside the tolerance")
	}
}

func TestValidateStepAcceptsEveryEnumValue(t *testing.T) {
	for _, lvl := range FitnessLevels {
		if _, err := ValidateStep(1, json.RawMessage(`{"fitness_level":"`+lvl+`"}`)); err != nil {
			t.Fatalf("fitness_level %q rejected: %v", lvl, err)
		}
	}
	for _, gt := range GoalTypes {
		payload := `{"goals":[{"goal_type":"` + gt + `","priority":1}]}`
		if _, err := ValidateStep(2, json.RawMessage(payload)); err != nil {
			t.Fatalf("goal_type %q rejected: %v", gt, err)
		}
	}
	for _, dt := range DietTypes {
		payload := `{"diet_type":"` + dt + `","allergies":[],"intolerances":[],"dislikes":[]}`
		if _, err := ValidateStep(4, json.RawMessage(payload)); err != nil {
			t.Fatalf("diet_type %q rejected: %v", dt, err)
		}
	}
}
