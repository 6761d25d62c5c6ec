package app

import (
	"fmt"
	"strings"

	rediscache "github.com/yungbote/fitcoach-backend/internal/clients/redis"
	"github.com/yungbote/fitcoach-backend/internal/platform/anthropic"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm/mock"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
	"github.com/yungbote/fitcoach-backend/internal/platform/openai"
)

type Clients struct {
	LLM   llm.Client
	Plans rediscache.PlanCache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...", "llm_provider", cfg.LLMProvider)

	var (
		client llm.Client
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", ProviderOpenAI:
		client, err = openai.NewClient(log, openai.ConfigFromEnv())
	case ProviderAnthropic:
		client, err = anthropic.NewClient(log, anthropic.ConfigFromEnv())
	case ProviderMock:
		client = mock.New()
	default:
		err = fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if err != nil {
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}

	plans, err := rediscache.NewPlanCache(log)
	if err != nil {
		// The cache is an accelerator; run without it.
		log.Warn("plan cache unavailable", "error", err)
		plans = rediscache.NoopPlanCache{}
	}
	return Clients{LLM: client, Plans: plans}, nil
}

func (c Clients) Close() {
	if c.Plans != nil {
		_ = c.Plans.Close()
	}
}
