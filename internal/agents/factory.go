package agents

import (
	"errors"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type Deps struct {
	LLM        llm.Client
	Log        *logger.Logger
	Prompts    *PromptCatalog
	Onboarding OnboardingStore
	Profiles   ProfileStore
	Classifier QueryClassifier
}

// Factory builds agents by type. Agents hold no per-user state, so one
// instance may serve many turns.
type Factory struct {
	deps Deps
}

func NewFactory(deps Deps) (*Factory, error) {
	if deps.LLM == nil {
		return nil, errors.New("agents: llm client required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Prompts == nil {
		p, err := DefaultPrompts()
		if err != nil {
			return nil, err
		}
		deps.Prompts = p
	}
	deps.Log = deps.Log.With("component", "agents")
	return &Factory{deps: deps}, nil
}

// OnboardingTypes lists the conversational onboarding agents in step order.
var OnboardingTypes = []string{
	AgentFitnessAssessment,
	AgentGoalSetting,
	AgentWorkoutPlanning,
	AgentDietPlanning,
	AgentScheduling,
}

func IsOnboardingType(agentType string) bool {
	for _, t := range OnboardingTypes {
		if t == agentType {
			return true
		}
	}
	return false
}

func IsKnownType(agentType string) bool {
	if agentType == AgentGeneral || IsOnboardingType(agentType) {
		return true
	}
	for _, t := range Specialists {
		if t == agentType {
			return true
		}
	}
	return false
}

func (f *Factory) New(agentType string) (Agent, error) {
	tools, err := f.toolsFor(agentType)
	if err != nil {
		return nil, err
	}
	return newCoach(agentType, f.deps.LLM, f.deps.Log, f.deps.Prompts, tools), nil
}

func (f *Factory) toolsFor(agentType string) ([]Tool, error) {
	if !IsKnownType(agentType) {
		return nil, apierr.Validation("agent_type", "unknown agent type %q", agentType)
	}
	if IsOnboardingType(agentType) {
		if f.deps.Onboarding == nil {
			return nil, errors.New("agents: onboarding store required")
		}
		o := onboardingTools{store: f.deps.Onboarding}
		switch agentType {
		case AgentFitnessAssessment:
			return o.fitnessAssessment(), nil
		case AgentGoalSetting:
			return o.goalSetting(), nil
		case AgentWorkoutPlanning:
			return o.workoutPlanning(), nil
		case AgentDietPlanning:
			return o.dietPlanning(), nil
		default:
			return o.scheduling(), nil
		}
	}
	if agentType == AgentGeneral {
		return f.generalTools(), nil
	}
	if f.deps.Profiles == nil {
		return nil, errors.New("agents: profile store required")
	}
	p := profileTools{store: f.deps.Profiles}
	switch agentType {
	case AgentWorkout:
		return p.workout(), nil
	case AgentDiet:
		return p.diet(), nil
	case AgentSupplement:
		return p.supplement(), nil
	case AgentTracker:
		return p.tracker(), nil
	default:
		return p.scheduler(), nil
	}
}
