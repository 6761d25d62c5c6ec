package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/fitcoach-backend/internal/http/handlers"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	User       *httpH.UserHandler
	Onboarding *httpH.OnboardingHandler
	Profile    *httpH.ProfileHandler
	Chat       *httpH.ChatHandler
	Voice      *httpH.VoiceHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, coaching Coaching) (Handlers, error) {
	log.Info("Wiring handlers...")
	sqlDB, err := db.DB()
	if err != nil {
		return Handlers{}, err
	}
	return Handlers{
		Health:     httpH.NewHealthHandler(sqlDB),
		User:       httpH.NewUserHandler(log, services.User),
		Onboarding: httpH.NewOnboardingHandler(log, services.Onboarding),
		Profile:    httpH.NewProfileHandler(log, services.Profile),
		Chat:       httpH.NewChatHandler(log, coaching.Text),
		Voice: httpH.NewVoiceHandler(log, func() httpH.VoiceRouter {
			return coaching.NewVoice()
		}),
	}, nil
}
