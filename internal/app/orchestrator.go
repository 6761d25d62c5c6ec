package app

import (
	"fmt"

	"github.com/yungbote/fitcoach-backend/internal/agents"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	"github.com/yungbote/fitcoach-backend/internal/orchestrator"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// Coaching holds the shared agent pieces. Text turns share one orchestrator;
// every voice session gets its own so its agent cache stays warm.
type Coaching struct {
	Text     *orchestrator.Orchestrator
	NewVoice func() *orchestrator.Orchestrator
}

func wireCoaching(log *logger.Logger, cfg Config, set repos.Set, clients Clients, svc Services) (Coaching, error) {
	log.Info("Wiring agents and orchestrator...")

	factory, err := agents.NewFactory(agents.Deps{
		LLM:        clients.LLM,
		Log:        log,
		Onboarding: svc.Onboarding,
		Profiles:   svc.Profile,
		Classifier: orchestrator.NewClassifier(clients.LLM, log),
	})
	if err != nil {
		return Coaching{}, fmt.Errorf("init agent factory: %w", err)
	}

	loader := orchestrator.NewContextLoader(orchestrator.LoaderDeps{
		Log:           log,
		Users:         set.Users,
		States:        set.Onboarding,
		Profiles:      set.Profiles,
		WorkoutPlans:  set.WorkoutPlans,
		Conversations: set.Conversations,
		Plans:         clients.Plans,
	})
	deps := orchestrator.Deps{
		Log:           log,
		LLM:           clients.LLM,
		Agents:        factory,
		Loader:        loader,
		Onboarding:    svc.Onboarding,
		Conversations: set.Conversations,
	}
	build := func(mode string) *orchestrator.Orchestrator {
		return orchestrator.New(orchestrator.Config{
			Mode:         mode,
			TextTimeout:  cfg.TextTimeout,
			VoiceTimeout: cfg.VoiceTimeout,
		}, deps)
	}
	return Coaching{
		Text:     build(orchestrator.ModeText),
		NewVoice: func() *orchestrator.Orchestrator { return build(orchestrator.ModeVoice) },
	}, nil
}
