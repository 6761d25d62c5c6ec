package app

import (
	fchttp "github.com/yungbote/fitcoach-backend/internal/http"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, mw Middleware) *fchttp.Server {
	log.Info("Wiring router...")
	return fchttp.NewServer(fchttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       cfg.ServiceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		AuthMiddleware:    mw.Auth,
		HealthHandler:     handlers.Health,
		UserHandler:       handlers.User,
		OnboardingHandler: handlers.Onboarding,
		ProfileHandler:    handlers.Profile,
		ChatHandler:       handlers.Chat,
		VoiceHandler:      handlers.Voice,
	})
}
