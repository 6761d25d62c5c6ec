package orchestrator

import (
	"github.com/yungbote/fitcoach-backend/internal/agents"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// CheckAccess applies the onboarding routing rules. Every rejection is an
// access_denied error.
func CheckAccess(onboardingMode, onboardingCompleted bool, agentType string) error {
	switch {
	case onboardingMode && onboardingCompleted:
		return apierr.AccessDenied("onboarding already completed; use regular chat")
	case onboardingMode:
		return nil
	case !onboardingCompleted:
		return apierr.AccessDenied("complete onboarding first")
	case agentType == "" || agentType == agents.AgentGeneral:
		return nil
	default:
		return apierr.AccessDenied("only general agent available post-onboarding")
	}
}

// SelectAgent picks the agent for an allowed request. During onboarding a
// requested onboarding agent wins; otherwise the agent follows the next step
// to fill. After onboarding it is always general.
func SelectAgent(onboardingMode bool, requested string, currentState int) string {
	if !onboardingMode {
		return agents.AgentGeneral
	}
	if agents.IsOnboardingType(requested) {
		return requested
	}
	next := currentState + 1
	if next > onboarding.TotalStates {
		next = onboarding.TotalStates
	}
	return onboarding.ConversationalAgentForStep(next)
}
