package validate

import (
	"testing"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

type slot struct {
	Day  int    `json:"day_of_week" validate:"min=0,max=6"`
	Time string `json:"scheduled_time" validate:"required,clock"`
}

type week struct {
	Slots []slot `json:"slots" validate:"min=1,max=3,unique=Day,dive"`
	Level string `json:"level" validate:"required,oneof=low high"`
}

func TestStructReportsJSONPaths(t *testing.T) {
	cases := []struct {
		name  string
		in    week
		field string
	}{
		{"empty slots", week{Level: "low"}, "slots"},
		{"too many slots", week{Slots: []slot{{0, "08:00"}, {1, "08:00"}, {2, "08:00"}, {3, "08:00"}}, Level: "low"}, "slots"},
		{"duplicate day", week{Slots: []slot{{1, "08:00"}, {2, "08:00"}, {2, "09:00"}}, Level: "low"}, "slots[2].day_of_week"},
		{"bad clock", week{Slots: []slot{{1, "25:00"}}, Level: "low"}, "slots[0].scheduled_time"},
		{"day out of range", week{Slots: []slot{{9, "08:00"}}, Level: "low"}, "slots[0].day_of_week"},
		{"bad enum", week{Slots: []slot{{1, "08:00"}}, Level: "mid"}, "level"},
		{"missing enum", week{Slots: []slot{{1, "08:00"}}}, "level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in)
			ae, ok := apierr.As(err)
			if !ok || ae.Code != apierr.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ae.Field != tc.field {
				t.Fatalf("field = %q, want %q (%s)", ae.Field, tc.field, ae.Message)
			}
		})
	}
	if err := Struct(week{Slots: []slot{{0, "00:00"}, {6, "23:59"}}, Level: "high"}); err != nil {
		t.Fatalf("valid week rejected: %v", err)
	}
}

func TestVarUsesGivenPath(t *testing.T) {
	err := Var("sets", 12, "gte=1,lte=10")
	ae, ok := apierr.As(err)
	if !ok || ae.Field != "sets" {
		t.Fatalf("expected validation error on sets, got %v", err)
	}
	if ae.Message != "sets must be at most 10" {
		t.Fatalf("message = %q", ae.Message)
	}
	err = Var("tags", []any{"a", "b", "c"}, "max=2")
	if ae, ok := apierr.As(err); !ok || ae.Message != "tags must contain at most 2 entries" {
		t.Fatalf("collection message: %v", err)
	}
	if err := Var("sets", 3, "gte=1,lte=10"); err != nil {
		t.Fatalf("in range: %v", err)
	}
	if err := Var("anything", "x", ""); err != nil {
		t.Fatalf("empty tag should pass: %v", err)
	}
}

func TestIsClock(t *testing.T) {
	for _, ok := range []string{"00:00", "07:30", "23:59"} {
		if !IsClock(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"7:30", "24:00", "12:60", "12-30", "", "12:3a"} {
		if IsClock(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}
