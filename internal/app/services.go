package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
	"github.com/yungbote/fitcoach-backend/internal/services"
)

type Services struct {
	Onboarding services.OnboardingService
	Profile    services.ProfileService
	User       services.UserService
	Tokens     services.TokenVerifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	tokens, err := services.NewTokenVerifier(cfg.JWTSecretKey, cfg.JWTIssuer)
	if err != nil {
		return Services{}, fmt.Errorf("init token verifier: %w", err)
	}

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}
	onboardingAgg := aggregates.NewOnboardingAggregate(aggregates.OnboardingAggregateDeps{
		Base:         base,
		States:       set.Onboarding,
		Profiles:     set.Profiles,
		Versions:     set.Versions,
		WorkoutPlans: set.WorkoutPlans,
		Exercises:    set.Exercises,
	})
	profileAgg := aggregates.NewProfileAggregate(aggregates.ProfileAggregateDeps{
		Base:     base,
		Profiles: set.Profiles,
		Versions: set.Versions,
	})
	userAgg := aggregates.NewUserAggregate(aggregates.UserAggregateDeps{
		Base:          base,
		Users:         set.Users,
		States:        set.Onboarding,
		Profiles:      set.Profiles,
		WorkoutPlans:  set.WorkoutPlans,
		Conversations: set.Conversations,
	})

	return Services{
		Onboarding: services.NewOnboardingService(db, log, set.Onboarding, onboardingAgg),
		Profile:    services.NewProfileService(db, log, set.Profiles, set.Versions, profileAgg, clients.Plans),
		User:       services.NewUserService(db, log, set.Users, set.Onboarding, userAgg, clients.Plans),
		Tokens:     tokens,
	}, nil
}
