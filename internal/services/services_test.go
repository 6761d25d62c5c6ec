package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	repotest "github.com/yungbote/fitcoach-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
)

type recordingPlanCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *recordingPlanCache) Get(context.Context, uuid.UUID, string) ([]byte, bool) {
	return nil, false
}
func (c *recordingPlanCache) Set(context.Context, uuid.UUID, string, []byte) {}
func (c *recordingPlanCache) Close() error                                   { return nil }
func (c *recordingPlanCache) Invalidate(_ context.Context, userID uuid.UUID) {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, userID)
	c.mu.Unlock()
}

type testServices struct {
	ctx        context.Context
	db         *gorm.DB
	set        repos.Set
	plans      *recordingPlanCache
	onboarding OnboardingService
	onbAgg     domainagg.OnboardingAggregate
	profiles   ProfileService
	users      UserService
}

// newTestServices wires every service over db. Pass a repotest.Tx handle for
// isolated tests, or the raw DB when goroutines need separate transactions.
func newTestServices(t *testing.T, db *gorm.DB) testServices {
	t.Helper()
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	base := aggregates.BaseDeps{DB: db, Log: log}
	plans := &recordingPlanCache{}

	onbAgg := aggregates.NewOnboardingAggregate(aggregates.OnboardingAggregateDeps{
		Base:         base,
		States:       set.Onboarding,
		Profiles:     set.Profiles,
		Versions:     set.Versions,
		WorkoutPlans: set.WorkoutPlans,
		Exercises:    set.Exercises,
	})
	profAgg := aggregates.NewProfileAggregate(aggregates.ProfileAggregateDeps{
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
	return testServices{
		ctx:        context.Background(),
		db:         db,
		set:        set,
		plans:      plans,
		onboarding: NewOnboardingService(db, log, set.Onboarding, onbAgg),
		onbAgg:     onbAgg,
		profiles:   NewProfileService(db, log, set.Profiles, set.Versions, profAgg, plans),
		users:      NewUserService(db, log, set.Users, set.Onboarding, userAgg, plans),
	}
}
