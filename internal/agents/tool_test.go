package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

var hydrationParams = []Param{
	{Name: "target_ml", Type: TypeInteger, Required: true, Min: num(1500), Max: num(5000)},
	{Name: "frequency_hours", Type: TypeNumber, Required: true, Min: num(1), Max: num(4)},
	{Name: "level", Type: TypeString, Enum: []string{"low", "high"}},
	{Name: "meals", Type: TypeArray, Items: TypeObject, Max: num(2), Properties: []Param{
		{Name: "meal_name", Type: TypeString, Required: true},
		{Name: "scheduled_time", Type: TypeString, Required: true},
	}},
}

func TestValidateArgsRejects(t *testing.T) {
	cases := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"missing required", map[string]any{"frequency_hours": 2.0}, "target_ml"},
		{"below range", map[string]any{"target_ml": 1000.0, "frequency_hours": 2.0}, "target_ml"},
		{"above range", map[string]any{"target_ml": 2000.0, "frequency_hours": 4.5}, "frequency_hours"},
		{"not integer", map[string]any{"target_ml": 2000.5, "frequency_hours": 2.0}, "target_ml"},
		{"wrong type", map[string]any{"target_ml": "lots", "frequency_hours": 2.0}, "target_ml"},
		{"enum", map[string]any{"target_ml": 2000.0, "frequency_hours": 2.0, "level": "medium"}, "level"},
		{"too many items", map[string]any{"target_ml": 2000.0, "frequency_hours": 2.0, "meals": []any{
			map[string]any{"meal_name": "a", "scheduled_time": "08:00"},
			map[string]any{"meal_name": "b", "scheduled_time": "12:00"},
			map[string]any{"meal_name": "c", "scheduled_time": "18:00"},
		}}, "meals"},
		{"nested required", map[string]any{"target_ml": 2000.0, "frequency_hours": 2.0, "meals": []any{
			map[string]any{"meal_name": "a", "scheduled_time": "08:00"},
			map[string]any{"meal_name": "b"},
		}}, "meals[1].scheduled_time"},
		{"blank required string", map[string]any{"target_ml": 2000.0, "frequency_hours": 2.0, "meals": []any{
			map[string]any{"meal_name": "  ", "scheduled_time": "08:00"},
		}}, "meals[0].meal_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateArgs(hydrationParams, tc.args)
			ae, ok := apierr.As(err)
			if !ok {
				t.Fatalf("expected apierr, got %v", err)
			}
			if ae.Code != apierr.CodeValidation || ae.Field != tc.field {
				t.Fatalf("code=%s field=%q want field %q", ae.Code, ae.Field, tc.field)
			}
		})
	}
}

func TestValidateArgsNormalizes(t *testing.T) {
	out, err := ValidateArgs(hydrationParams, map[string]any{
		"target_ml":       2500.0,
		"frequency_hours": 1.5,
		"level":           " HIGH ",
		"unknown":         true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2500, out["target_ml"])
	assert.Equal(t, 1.5, out["frequency_hours"])
	assert.Equal(t, "high", out["level"])
	assert.NotContains(t, out, "unknown")
}

func TestConstraintTag(t *testing.T) {
	assert.Equal(t, "gte=1500,lte=5000", constraintTag(hydrationParams[0]))
	assert.Equal(t, "oneof=low high", constraintTag(hydrationParams[2]))
	assert.Equal(t, "max=2", constraintTag(hydrationParams[3]))
	assert.Equal(t, "required", constraintTag(Param{Type: TypeString, Required: true}))
	assert.Equal(t, "gte=0,lte=1000000", constraintTag(Param{Type: TypeNumber, Min: num(0), Max: num(1e6)}))

	_, err := ValidateArgs(hydrationParams, map[string]any{"target_ml": 1000.0, "frequency_hours": 2.0})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "target_ml must be at least 1500", ae.Message)
}

func TestToolDefSchema(t *testing.T) {
	def := Tool{Name: "save_hydration_preferences", Params: hydrationParams}.Def()
	assert.Equal(t, "save_hydration_preferences", def.Name)
	assert.Equal(t, []string{"target_ml", "frequency_hours"}, def.Parameters["required"])
	props := def.Parameters["properties"].(map[string]any)
	target := props["target_ml"].(map[string]any)
	assert.Equal(t, 1500.0, target["minimum"])
	meals := props["meals"].(map[string]any)
	items := meals["items"].(map[string]any)
	assert.Equal(t, TypeObject, items["type"])
}

func TestFailKeepsCodeAndField(t *testing.T) {
	res := Fail(apierr.Validation("goals[0].priority", "bad priority"))
	assert.False(t, res.Success)
	assert.Equal(t, apierr.CodeValidation, res.ErrorCode)
	assert.Equal(t, "goals[0].priority", res.Field)
	assert.JSONEq(t, `{"success":false,"error":"bad priority","error_code":"validation_error","field":"goals[0].priority"}`, res.JSON())
}
