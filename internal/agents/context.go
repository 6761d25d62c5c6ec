package agents

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
)

const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// EnergyBucket maps a 1..10 energy score onto low/medium/high. Zero means the
// score is unknown.
func EnergyBucket(level int) string {
	switch {
	case level <= 0:
		return EnergyMedium
	case level <= 3:
		return EnergyLow
	case level <= 7:
		return EnergyMedium
	default:
		return EnergyHigh
	}
}

// UserContextData is the mutable input to NewUserContext.
type UserContextData struct {
	UserID          uuid.UUID
	FirstName       string
	FitnessLevel    string
	PrimaryGoal     string
	SecondaryGoals  []string
	Limitations     []string
	EnergyLevel     string
	WorkoutPlan     map[string]any
	MealPlan        map[string]any
	History         []llm.Message
	OnboardingMode  bool
	OnboardingState int
	AgentContext    map[string]map[string]any
}

// UserContext is the read-only view an agent gets of one user for one turn.
// Accessors hand out copies, so agents cannot mutate shared state.
type UserContext struct {
	userID          uuid.UUID
	firstName       string
	fitnessLevel    string
	primaryGoal     string
	secondaryGoals  []string
	limitations     []string
	energyLevel     string
	workoutPlan     map[string]any
	mealPlan        map[string]any
	history         []llm.Message
	onboardingMode  bool
	onboardingState int
	agentContext    map[string]map[string]any
}

func NewUserContext(d UserContextData) UserContext {
	energy := strings.TrimSpace(d.EnergyLevel)
	if energy == "" {
		energy = EnergyMedium
	}
	uc := UserContext{
		userID:          d.UserID,
		firstName:       strings.TrimSpace(d.FirstName),
		fitnessLevel:    strings.TrimSpace(d.FitnessLevel),
		primaryGoal:     strings.TrimSpace(d.PrimaryGoal),
		secondaryGoals:  append([]string(nil), d.SecondaryGoals...),
		limitations:     append([]string(nil), d.Limitations...),
		energyLevel:     energy,
		workoutPlan:     cloneMap(d.WorkoutPlan),
		mealPlan:        cloneMap(d.MealPlan),
		history:         cloneMessages(d.History),
		onboardingMode:  d.OnboardingMode,
		onboardingState: d.OnboardingState,
	}
	if d.AgentContext != nil {
		uc.agentContext = make(map[string]map[string]any, len(d.AgentContext))
		for k, v := range d.AgentContext {
			uc.agentContext[k] = cloneMap(v)
		}
	}
	return uc
}

func (u UserContext) UserID() uuid.UUID        { return u.userID }
func (u UserContext) FirstName() string        { return u.firstName }
func (u UserContext) FitnessLevel() string     { return u.fitnessLevel }
func (u UserContext) PrimaryGoal() string      { return u.primaryGoal }
func (u UserContext) EnergyLevel() string      { return u.energyLevel }
func (u UserContext) OnboardingMode() bool     { return u.onboardingMode }
func (u UserContext) OnboardingState() int     { return u.onboardingState }
func (u UserContext) SecondaryGoals() []string { return append([]string(nil), u.secondaryGoals...) }
func (u UserContext) Limitations() []string    { return append([]string(nil), u.limitations...) }
func (u UserContext) WorkoutPlan() map[string]any {
	return cloneMap(u.workoutPlan)
}
func (u UserContext) MealPlan() map[string]any { return cloneMap(u.mealPlan) }
func (u UserContext) History() []llm.Message   { return cloneMessages(u.history) }

// AgentContext returns a copy of one agent_context bucket, or nil.
func (u UserContext) AgentContext(bucket string) map[string]any {
	return cloneMap(u.agentContext[bucket])
}

// Goals lists the primary goal followed by the secondary ones.
func (u UserContext) Goals() []string {
	var out []string
	if u.primaryGoal != "" {
		out = append(out, u.primaryGoal)
	}
	return append(out, u.secondaryGoals...)
}

func cloneMessages(in []llm.Message) []llm.Message {
	if in == nil {
		return nil
	}
	out := make([]llm.Message, len(in))
	for i, m := range in {
		m.ToolCalls = append([]llm.ToolCall(nil), m.ToolCalls...)
		out[i] = m
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
