package workout

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlanData is the stored shape of WorkoutPlan.PlanData and of the plan a
// workout agent proposes.
type PlanData struct {
	Frequency int       `json:"frequency"`
	Split     string    `json:"split"`
	Days      []PlanDay `json:"days"`
	Exercises []string  `json:"exercises,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type PlanDay struct {
	DayOfWeek int            `json:"day_of_week"`
	Focus     string         `json:"focus"`
	Exercises []PlanExercise `json:"exercises"`
}

type PlanExercise struct {
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
}

// DecodePlanData accepts any JSON-compatible value (a map from agent_context
// or raw bytes) and decodes it into PlanData.
func DecodePlanData(v any) (PlanData, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return PlanData{}, fmt.Errorf("workout plan missing")
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	case string:
		raw = []byte(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return PlanData{}, err
		}
		raw = b
	}
	var p PlanData
	if err := json.Unmarshal(raw, &p); err != nil {
		return PlanData{}, fmt.Errorf("decode workout plan: %w", err)
	}
	for i := range p.Days {
		p.Days[i].Focus = strings.TrimSpace(p.Days[i].Focus)
		for j := range p.Days[i].Exercises {
			p.Days[i].Exercises[j].Name = strings.TrimSpace(p.Days[i].Exercises[j].Name)
		}
	}
	return p, nil
}

// ExerciseNames lists unique exercise names across days, in first-seen order.
func (p PlanData) ExerciseNames() []string {
	seen := map[string]bool{}
	var out []string
	add := func(n string) {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, n)
	}
	for _, d := range p.Days {
		for _, e := range d.Exercises {
			add(e.Name)
		}
	}
	for _, n := range p.Exercises {
		add(n)
	}
	return out
}
